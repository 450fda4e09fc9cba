// Package textquery extracts report parameters from a free-text
// request: counter id, date pair, preset, and language. Values found
// here rank below explicitly supplied parameters; the caller merges
// them with explicit-wins priority.
package textquery

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"metrika-export/pkg/daterange"
)

// ErrNoDates reports a text without two parseable YYYY-MM-DD dates.
var ErrNoDates = errors.New("textquery: could not detect both dates")

// counterPattern matches a 6-9 digit counter id within a few
// characters of an inflected form of "счётчик".
var counterPattern = regexp.MustCompile(`(?i)(сч[её]тчик[\wа-яё\-]*)\D{0,5}\b(\d{6,9})\b`)

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// presetAnnotations maps request phrasings to preset names. Matched by
// substring against the lowercased text.
var presetAnnotations = map[string]string{
	"отчет по посещаемости":                       "traffic",
	"отчет по конверсиям":                         "conversion",
	"отчет по посещаемости по времени суток":      "hourly",
	"отчет по глубине визитов по времени":         "deepness_time",
	"отчет по глубине визитов по страницам":       "deepness_depth",
	"отчет по новым и возвратным пользователям":   "loyalty_newness",
	"отчет по периодичности визитов":              "loyalty_period",
	"отчет по браузерам":                          "tech_browsers",
	"отчет по операционным системам":              "tech_platforms",
	"отчет по устройствам":                        "tech_devices",
	"отчет по возрасту пользователей":             "age",
	"отчет по возрасту и полу":                    "age_gender",
	"отчет по полу пользователей":                 "gender",
	"отчет по поисковым системам":                 "search_engines",
	"отчет по поисковым фразам":                   "sources_search_phrases",
	"отчет по сайтам-источникам":                  "sources_sites",
	"отчет по социальным сетям":                   "sources_social",
	"отчет по географии пользователей по странам": "geo_country",
	"отчет по источникам трафика":                 "sources_summary",
}

var langKeywords = map[string]string{
	"русск":    "ru",
	"английск": "en",
	"english":  "en",
}

// Params is the structured result of parsing one free-text request.
// Empty fields mean the text did not mention them.
type Params struct {
	CounterID string
	Preset    string
	Lang      string
	Date1     string
	Date2     string
}

// Parse extracts parameters from text. The two dates are mandatory and
// returned in ascending order; everything else is best effort.
func Parse(text string) (Params, error) {
	d1, d2, err := detectDates(text)
	if err != nil {
		return Params{}, err
	}
	return Params{
		CounterID: detectCounterID(text),
		Preset:    detectPreset(text),
		Lang:      detectLang(text),
		Date1:     d1,
		Date2:     d2,
	}, nil
}

func detectCounterID(text string) string {
	m := counterPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[2]
}

// detectPreset checks the longer, more specific phrasings first so
// "посещаемости по времени суток" is not shadowed by "посещаемости".
func detectPreset(text string) string {
	t := strings.ToLower(text)

	keys := make([]string, 0, len(presetAnnotations))
	for k := range presetAnnotations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	for _, k := range keys {
		if strings.Contains(t, k) {
			return presetAnnotations[k]
		}
	}
	return ""
}

func detectLang(text string) string {
	t := strings.ToLower(text)
	for kw, code := range langKeywords {
		if strings.Contains(t, kw) {
			return code
		}
	}
	return ""
}

func detectDates(text string) (string, string, error) {
	candidates := datePattern.FindAllString(text, -1)
	if len(candidates) < 2 {
		return "", "", ErrNoDates
	}

	d1, err := time.Parse(daterange.Layout, candidates[0])
	if err != nil {
		return "", "", ErrNoDates
	}
	d2, err := time.Parse(daterange.Layout, candidates[1])
	if err != nil {
		return "", "", ErrNoDates
	}

	if d1.After(d2) {
		d1, d2 = d2, d1
	}
	return d1.Format(daterange.Layout), d2.Format(daterange.Layout), nil
}
