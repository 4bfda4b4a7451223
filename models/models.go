package models

type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

func (t Tier) Valid() bool {
	return t == TierLow || t == TierMedium || t == TierHigh
}

// Profile is one complete sensitivity recommendation. Every field except DPI
// lies in [0, 200].
type Profile struct {
	General     int `json:"general"`
	RedDot      int `json:"red_dot"`
	Scope2x     int `json:"scope_2x"`
	Scope4x     int `json:"scope_4x"`
	SniperScope int `json:"sniper_scope"`
	FreeLook    int `json:"free_look"`
	FireButton  int `json:"fire_button"`
	DPI         int `json:"dpi"`
}

const (
	MinSensitivity = 0
	MaxSensitivity = 200
)

// AllowedDPI is the set of DPI values a profile may carry.
var AllowedDPI = []int{300, 320, 360, 400, 480}

// Sensitivities returns the non-DPI fields in declaration order.
func (p Profile) Sensitivities() []int {
	return []int{p.General, p.RedDot, p.Scope2x, p.Scope4x, p.SniperScope, p.FreeLook, p.FireButton}
}

func (p Profile) Valid() bool {
	for _, v := range p.Sensitivities() {
		if v < MinSensitivity || v > MaxSensitivity {
			return false
		}
	}
	for _, d := range AllowedDPI {
		if p.DPI == d {
			return true
		}
	}
	return false
}

type DeviceTierEntry struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
	Tier  Tier   `json:"tier"`
}

// Snippet is one search hit.
type Snippet struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

const (
	SourceSearch    = "search"
	SourceHeuristic = "heuristic"
	SourceAI        = "ai"
	SourceFallback  = "fallback"
)

type BasicResult struct {
	Source     string    `json:"source"`
	Hits       []Snippet `json:"hits"`
	Suggestion Profile   `json:"suggestion"`
}

// Guide is the structured premium answer: values plus how to apply them.
type Guide struct {
	Values  Profile  `json:"values"`
	Steps   []string `json:"steps"`
	Tips    []string `json:"tips"`
	Sources []string `json:"sources"`
}

// PremiumResult carries exactly one of Parsed, Raw or Error.
type PremiumResult struct {
	OK          bool      `json:"ok"`
	Source      string    `json:"source,omitempty"`
	Parsed      any       `json:"parsed,omitempty"`
	Raw         string    `json:"raw,omitempty"`
	SchemaValid *bool     `json:"schema_valid,omitempty"`
	Error       string    `json:"error,omitempty"`
	Hits        []Snippet `json:"hits,omitempty"`
}
