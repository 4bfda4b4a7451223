package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"sensiboost/models"
)

// maxScanRunes bounds the text scanned per snippet.
const maxScanRunes = 1200

const maxCandidate = 2000

// Trigger vocabulary, longest alternatives first: RE2 alternation is
// leftmost-first, so "sensi" must come after "sensibilidad".
var triggerWords = []string{
	`sensibilidad(?:es)?`,
	`sensitivit(?:y|ies)`,
	`sensi`,
	`general`,
	`punto\s+rojo`,
	`red\s?dot`,
	`mira`,
	`scope`,
	`francotirador`,
	`sniper`,
	`c[aá]mara`,
	`camera`,
	`free\s?look`,
	`bot[oó]n\s+de\s+disparo`,
	`fire\s+button`,
	`dpi`,
}

var sensitivityPattern = regexp.MustCompile(
	`(?i)\b(?:` + strings.Join(triggerWords, "|") + `)\b\D{0,30}(\d{1,4})`,
)

// Offsets applied to the median to fill each field.
const (
	offsetRedDot     = -10
	offsetScope2x    = -15
	offsetScope4x    = -25
	offsetSniper     = -50
	offsetFreeLook   = 20
	offsetFireButton = -40

	dpiThreshold = 150
	dpiHigh      = 400
	dpiLow       = 320
)

func clamp(v int) int {
	if v < models.MinSensitivity {
		return models.MinSensitivity
	}
	if v > models.MaxSensitivity {
		return models.MaxSensitivity
	}
	return v
}

// plainText drops markup and decodes entities, then collapses whitespace.
// Search APIs return titles like "<b>Sensibilidad</b> &amp; DPI".
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// scanText returns every number that follows a trigger word in text.
func scanText(text string) []int {
	var out []int
	for _, m := range sensitivityPattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.Atoi(m[1])
		if err != nil || v < 0 || v > maxCandidate {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ScanCandidates collects candidate values from all snippets, in order.
func ScanCandidates(snippets []models.Snippet) []int {
	var out []int
	for _, s := range snippets {
		text := truncateRunes(plainText(s.Title+" "+s.Description), maxScanRunes)
		out = append(out, scanText(text)...)
	}
	return out
}

// DeriveProfile builds a profile from the element at index len/2 of the
// sorted candidates. Nil when there are no candidates.
func DeriveProfile(candidates []int) *models.Profile {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]int, len(candidates))
	copy(sorted, candidates)
	sort.Ints(sorted)
	m := sorted[len(sorted)/2]

	dpi := dpiLow
	if m >= dpiThreshold {
		dpi = dpiHigh
	}
	return &models.Profile{
		General:     clamp(m),
		RedDot:      clamp(m + offsetRedDot),
		Scope2x:     clamp(m + offsetScope2x),
		Scope4x:     clamp(m + offsetScope4x),
		SniperScope: clamp(m + offsetSniper),
		FreeLook:    clamp(m + offsetFreeLook),
		FireButton:  clamp(m + offsetFireButton),
		DPI:         dpi,
	}
}

// ExtractSuggestion is ScanCandidates followed by DeriveProfile.
func ExtractSuggestion(snippets []models.Snippet) *models.Profile {
	return DeriveProfile(ScanCandidates(snippets))
}
