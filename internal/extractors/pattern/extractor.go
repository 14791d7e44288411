package pattern

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// Extractor applies the extraction rules.
type Extractor struct {
	rules []rule
}

// rule adds fields found in text to out. It must not overwrite keys
// already present.
type rule func(text string, out fields)

type fields map[string]any

// setOnce stores a value unless the field is already set.
func (f fields) setOnce(name string, v any) {
	if _, ok := f[name]; !ok {
		f[name] = v
	}
}

// New creates an Extractor with the built-in rules.
func New() *Extractor {
	return &Extractor{
		rules: []rule{
			extractCurrency,
			extractDate,
			extractDuration,
			extractActivity,
			extractLinks,
			extractFlags,
			extractSourceURL,
		},
	}
}

// Extract returns the fields found in text. Text that is not valid UTF-8
// yields an empty map.
func (e *Extractor) Extract(text string) map[string]any {
	out := make(fields)
	if !utf8.ValidString(text) {
		return out
	}
	for _, r := range e.rules {
		r(text, out)
	}
	return out
}

// Currency.

// Trailing words are limited to ISO codes and names that are never units,
// so "3 pounds of flour" is not an amount.
var (
	currencyPrefix = regexp.MustCompile(`([¥￥$€£₩₹])\s?(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?`)
	currencySuffix = regexp.MustCompile(
		`(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?\s?(円|(?i:jpy|usd|eur|gbp|yen|euros?)\b)`)
)

var currencyCodes = map[string]string{
	"¥": "JPY", "￥": "JPY", "円": "JPY", "jpy": "JPY", "yen": "JPY",
	"$": "USD", "usd": "USD",
	"€": "EUR", "eur": "EUR", "euro": "EUR", "euros": "EUR",
	"£": "GBP", "gbp": "GBP",
	"₩": "KRW",
	"₹": "INR",
}

func extractCurrency(text string, out fields) {
	type hit struct {
		pos      int
		integer  string
		fraction string
		unit     string
	}
	var hits []hit
	if m := currencyPrefix.FindStringSubmatchIndex(text); m != nil {
		hits = append(hits, hit{m[0], text[m[4]:m[5]], group(text, m, 3), text[m[2]:m[3]]})
	}
	if m := currencySuffix.FindStringSubmatchIndex(text); m != nil {
		hits = append(hits, hit{m[0], text[m[2]:m[3]], group(text, m, 2), text[m[6]:m[7]]})
	}
	if len(hits) == 0 {
		return
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	h := hits[0]

	amount, err := strconv.ParseFloat(strings.ReplaceAll(h.integer, ",", "")+h.fraction, 64)
	if err != nil || math.IsInf(amount, 0) {
		return
	}
	out.setOnce(domain.FieldAmount, amount)
	if code, ok := currencyCodes[strings.ToLower(h.unit)]; ok {
		out.setOnce(domain.FieldCurrency, code)
	}
}

// group returns submatch n of a FindStringSubmatchIndex result, or "".
func group(text string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return text[m[2*n]:m[2*n+1]]
}

// Date.

var (
	isoDate = regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`)
	cjkDate = regexp.MustCompile(`(\d{4})年\s?(\d{1,2})月\s?(\d{1,2})日`)
)

// extractDate emits the first valid absolute date. Relative expressions
// such as "next Friday" are left to the caller.
func extractDate(text string, out fields) {
	type hit struct {
		pos int
		ymd [3]string
	}
	var hits []hit
	for _, re := range []*regexp.Regexp{isoDate, cjkDate} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			hits = append(hits, hit{m[0], [3]string{group(text, m, 1), group(text, m, 2), group(text, m, 3)}})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	for _, h := range hits {
		if d, ok := calendarDate(h.ymd); ok {
			out.setOnce(domain.FieldDueDate, d)
			return
		}
	}
}

// calendarDate validates a year/month/day triple, rejecting overflow such
// as February 30th.
func calendarDate(ymd [3]string) (time.Time, bool) {
	y, err1 := strconv.Atoi(ymd[0])
	m, err2 := strconv.Atoi(ymd[1])
	d, err3 := strconv.Atoi(ymd[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// Duration.

var (
	latinDuration = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s?(hours?|hrs?|h|minutes?|mins?)\b`)
	cjkDuration   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s?(時間|分)`)
)

// extractDuration sums every duration token, so "1 hour 30 minutes"
// yields 1.5.
func extractDuration(text string, out fields) {
	var hours float64
	found := false
	for _, re := range []*regexp.Regexp{latinDuration, cjkDuration} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			unit := strings.ToLower(m[2])
			if strings.HasPrefix(unit, "h") || unit == "時間" {
				hours += n
			} else {
				hours += n / 60
			}
			found = true
		}
	}
	if found && hours > 0 {
		out.setOnce(domain.FieldEstimatedHours, math.Round(hours*100)/100)
	}
}

// Activity.

// activityKeywords maps keywords to activity types.
var activityKeywords = map[string][]string{
	"running":    {"running", "run", "ran", "ランニング"},
	"jogging":    {"jogging", "jog", "ジョギング"},
	"walking":    {"walking", "walk", "walked", "散歩", "ウォーキング"},
	"cycling":    {"cycling", "biking", "bike ride", "cycled", "サイクリング"},
	"swimming":   {"swimming", "swim", "swam", "水泳"},
	"yoga":       {"yoga", "ヨガ"},
	"workout":    {"workout", "gym", "weights", "lifting", "筋トレ"},
	"hiking":     {"hiking", "hike", "hiked", "登山"},
	"meeting":    {"meeting", "standup", "stand-up", "会議", "ミーティング"},
	"study":      {"study", "studying", "studied", "勉強"},
	"reading":    {"reading", "読書"},
	"meditation": {"meditation", "meditate", "meditated", "瞑想"},
	"sleep":      {"slept", "nap", "睡眠"},
}

var activityPattern, activityLookup = compileActivities()

func compileActivities() (*regexp.Regexp, map[string]string) {
	lookup := make(map[string]string)
	var latin, cjk []string
	for activity, words := range activityKeywords {
		for _, w := range words {
			lookup[w] = activity
			if isASCII(w) {
				latin = append(latin, regexp.QuoteMeta(w))
			} else {
				cjk = append(cjk, regexp.QuoteMeta(w))
			}
		}
	}
	// Longest first so "running" wins over "run" at the same position.
	byLength := func(s []string) {
		sort.Slice(s, func(i, j int) bool {
			if len(s[i]) != len(s[j]) {
				return len(s[i]) > len(s[j])
			}
			return s[i] < s[j]
		})
	}
	byLength(latin)
	byLength(cjk)
	re := regexp.MustCompile(`(?i)\b(` + strings.Join(latin, "|") + `)\b|(` + strings.Join(cjk, "|") + `)`)
	return re, lookup
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func extractActivity(text string, out fields) {
	m := activityPattern.FindStringSubmatch(text)
	if m == nil {
		return
	}
	word := m[1]
	if word == "" {
		word = m[2]
	}
	if activity, ok := activityLookup[strings.ToLower(word)]; ok {
		out.setOnce(domain.FieldActivityType, activity)
	}
}

// Wikilinks.

var wikilink = regexp.MustCompile(`\[\[([^\[\]|]+)(?:\|[^\[\]]*)?\]\]`)

func extractLinks(text string, out fields) {
	var links []string
	seen := make(map[string]bool)
	for _, m := range wikilink.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		links = append(links, name)
	}
	if len(links) > 0 {
		out.setOnce(domain.FieldLinks, links)
	}
}

// Flags.

var (
	receiptNegated = regexp.MustCompile(`(?i)\b(no|without|lost|missing)\s+((the|a|my)\s+)?receipts?\b|領収書なし|レシートなし`)
	receiptWord    = regexp.MustCompile(`(?i)\breceipts?\b|領収書|レシート`)
	taxDeductible  = regexp.MustCompile(`(?i)\btax[- ]deductible\b|経費`)
	completedWord  = regexp.MustCompile(`(?i)\b(done|completed|finished)\b|完了|済み`)
)

func extractFlags(text string, out fields) {
	switch {
	case receiptNegated.MatchString(text):
		out.setOnce(domain.FieldReceipt, false)
	case receiptWord.MatchString(text):
		out.setOnce(domain.FieldReceipt, true)
	}
	if taxDeductible.MatchString(text) {
		out.setOnce(domain.FieldTaxDeductible, true)
	}
	if completedWord.MatchString(text) {
		out.setOnce(domain.FieldCompleted, true)
	}
}

// Source URL.

var urlPattern = regexp.MustCompile(`https?://[^\s<>()\[\]"']+`)

func extractSourceURL(text string, out fields) {
	u := urlPattern.FindString(text)
	u = strings.TrimRight(u, ".,;:!?")
	if u != "" {
		out.setOnce(domain.FieldSourceURL, u)
	}
}
