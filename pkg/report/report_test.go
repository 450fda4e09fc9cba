package report

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"metrika-export/pkg/budget"
	"metrika-export/pkg/client"
	"metrika-export/pkg/daterange"
	"metrika-export/pkg/query"
)

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, params url.Values, bud *budget.Budget) (*client.PageResponse, error)

func (f fetcherFunc) FetchPage(ctx context.Context, params url.Values, bud *budget.Budget) (*client.PageResponse, error) {
	return f(ctx, params, bud)
}

// scriptedFetcher serves a fixed page sequence in call order and
// records the offset of every request.
type scriptedFetcher struct {
	pages   []*client.PageResponse
	err     error // returned after the scripted pages run out
	offsets []string
}

func (s *scriptedFetcher) FetchPage(ctx context.Context, params url.Values, bud *budget.Budget) (*client.PageResponse, error) {
	s.offsets = append(s.offsets, params.Get("offset"))
	if len(s.pages) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return makePage("extra", 0, false), nil
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

func fptr(v float64) *float64 { return &v }

// makePage builds a page of n rows, one dimension and one metric each.
func makePage(label string, n int, sampled bool) *client.PageResponse {
	rows := make([]client.RawRow, n)
	for i := range rows {
		rows[i] = client.RawRow{
			Dimensions: []client.DimensionValue{{Name: fmt.Sprintf("%s-%d", label, i)}},
			Metrics:    client.MetricValues{Flat: []*float64{fptr(float64(i))}},
		}
	}
	return &client.PageResponse{
		Data:      &rows,
		Query:     client.QueryEcho{Dimensions: []string{"ym:s:trafficSource"}, Metrics: []string{"ym:s:visits"}},
		TotalRows: int64(n),
		Sampled:   sampled,
	}
}

func brokenPage() *client.PageResponse {
	return &client.PageResponse{Query: client.QueryEcho{}}
}

func testSpec() query.Spec {
	return query.Spec{CounterID: "44147844", Preset: "traffic"}
}

func mustRange(t *testing.T, d1, d2 string) daterange.Range {
	t.Helper()
	r, err := daterange.Parse(d1, d2)
	if err != nil {
		t.Fatalf("Parse(%s, %s) error = %v", d1, d2, err)
	}
	return r
}
