// Package pii implements the input_guard node's sensitive-data detector: a
// pure function over text that classifies matches as low or critical
// severity and produces a masked rendering of the text.
//
// Go's regexp package (RE2) has no lookaround support, unlike the original
// Python patterns this is ported from. Patterns that relied on
// (?<!\d)/(?!\d) digit-boundary lookarounds (phone, credit_card) are
// expressed here as plain regexes followed by an explicit boundary check on
// the surrounding runes, which is the idiomatic RE2 substitute.
package pii

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Severity classifies how a detected match must be handled.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityCritical Severity = "critical"
)

// Match is one detected span of sensitive data.
type Match struct {
	Category    string
	Severity    Severity
	Start       int
	End         int
	Replacement string
}

// Result is the outcome of scanning one piece of text.
type Result struct {
	HasCritical     bool
	HasLow          bool
	Matches         []Match
	MaskedText      string
	RejectionReason string // non-empty iff HasCritical
}

type pattern struct {
	category    string
	re          *regexp.Regexp
	severity    Severity
	replacement string
	// digitBoundary, when true, discards matches whose immediately
	// preceding/following rune is itself a digit (RE2 has no \B-style
	// digit lookaround, so this is checked manually after matching).
	digitBoundary bool
}

var patterns = []pattern{
	{category: "email", re: regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`), severity: SeverityLow, replacement: "[EMAIL]"},
	{category: "phone", re: regexp.MustCompile(`(?:\+?\d{1,3}[\s\-]?)?(?:\(?\d{2,4}\)?[\s\-]?)?\d{3,4}[\s\-]?\d{2,4}[\s\-]?\d{2,4}`), severity: SeverityLow, replacement: "[PHONE]", digitBoundary: true},
	{category: "credit_card", re: regexp.MustCompile(`(?:\d{4}[\s\-]?){3}\d{4}`), severity: SeverityLow, replacement: "[CARD]", digitBoundary: true},
	{category: "ip_address", re: regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), severity: SeverityLow, replacement: "[IP]"},
	{category: "passport_ru", re: regexp.MustCompile(`\b\d{2}\s?\d{2}\s?\d{6}\b`), severity: SeverityCritical, replacement: "[PASSPORT]"},
	{category: "ssn", re: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), severity: SeverityCritical, replacement: "[SSN]"},
	{category: "api_key", re: regexp.MustCompile(`(?i)(?:sk-[a-zA-Z0-9]{20,})|(?:ghp_[a-zA-Z0-9]{36,})|(?:AKIA[0-9A-Z]{16})|(?:-----BEGIN (?:RSA |EC |DSA )?PRIVATE KEY-----)`), severity: SeverityCritical, replacement: "[SECRET_KEY]"},
	{category: "jwt_token", re: regexp.MustCompile(`eyJ[a-zA-Z0-9_-]{10,}\.eyJ[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,}`), severity: SeverityCritical, replacement: "[JWT]"},
}

// Detect scans text for every pattern and returns the combined result,
// including a masked rendering with every match replaced.
func Detect(text string) Result {
	var matches []Match
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			if p.digitBoundary && hasDigitBoundary(text, start, end) {
				continue
			}
			matches = append(matches, Match{
				Category:    p.category,
				Severity:    p.severity,
				Start:       start,
				End:         end,
				Replacement: p.replacement,
			})
		}
	}

	if len(matches) == 0 {
		return Result{MaskedText: text}
	}

	var hasCritical, hasLow bool
	criticalSet := map[string]struct{}{}
	for _, m := range matches {
		switch m.Severity {
		case SeverityCritical:
			hasCritical = true
			criticalSet[m.Category] = struct{}{}
		case SeverityLow:
			hasLow = true
		}
	}

	var reason string
	if hasCritical {
		cats := make([]string, 0, len(criticalSet))
		for c := range criticalSet {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		reason = fmt.Sprintf("Detected critical sensitive data: %s", strings.Join(cats, ", "))
	}

	masked := maskText(text, matches)

	return Result{
		HasCritical:     hasCritical,
		HasLow:          hasLow,
		Matches:         matches,
		MaskedText:      masked,
		RejectionReason: reason,
	}
}

// maskText splices in replacements from the last match to the first so
// earlier byte offsets stay valid as the string shrinks or grows.
func maskText(text string, matches []Match) string {
	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	masked := text
	for _, m := range ordered {
		masked = masked[:m.Start] + m.Replacement + masked[m.End:]
	}
	return masked
}

// hasDigitBoundary reports whether the byte-offset span [start,end) in text
// is immediately preceded or followed by a digit rune, i.e. the RE2
// equivalent of a failed (?<!\d)...(?!\d) lookaround.
func hasDigitBoundary(text string, start, end int) bool {
	before := runeBefore(text, start)
	after := runeAfter(text, end)
	return (before != 0 && unicode.IsDigit(before)) || (after != 0 && unicode.IsDigit(after))
}

func runeBefore(text string, byteOffset int) rune {
	if byteOffset <= 0 {
		return 0
	}
	r := []rune(text[:byteOffset])
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}

func runeAfter(text string, byteOffset int) rune {
	if byteOffset >= len(text) {
		return 0
	}
	r := []rune(text[byteOffset:])
	if len(r) == 0 {
		return 0
	}
	return r[0]
}
