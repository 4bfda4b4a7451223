package services

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"sensiboost/models"
)

var devices = []models.DeviceTierEntry{
	{Brand: "Samsung", Model: "Galaxy A03", Tier: models.TierLow},
	{Brand: "Samsung", Model: "Galaxy A10", Tier: models.TierLow},
	{Brand: "Samsung", Model: "Galaxy A12", Tier: models.TierLow},
	{Brand: "Samsung", Model: "Galaxy A22", Tier: models.TierMedium},
	{Brand: "Samsung", Model: "Galaxy A32", Tier: models.TierMedium},
	{Brand: "Samsung", Model: "Galaxy A52", Tier: models.TierMedium},
	{Brand: "Samsung", Model: "Galaxy A54", Tier: models.TierHigh},
	{Brand: "Samsung", Model: "Galaxy S21", Tier: models.TierHigh},
	{Brand: "Samsung", Model: "Galaxy S23", Tier: models.TierHigh},
	{Brand: "Xiaomi", Model: "Redmi 9A", Tier: models.TierLow},
	{Brand: "Xiaomi", Model: "Redmi 9", Tier: models.TierMedium},
	{Brand: "Xiaomi", Model: "Redmi 10", Tier: models.TierMedium},
	{Brand: "Xiaomi", Model: "Redmi Note 8", Tier: models.TierMedium},
	{Brand: "Xiaomi", Model: "Redmi Note 10", Tier: models.TierMedium},
	{Brand: "Xiaomi", Model: "Redmi Note 12", Tier: models.TierHigh},
	{Brand: "Xiaomi", Model: "Poco X3", Tier: models.TierHigh},
	{Brand: "Xiaomi", Model: "Poco X5", Tier: models.TierHigh},
	{Brand: "Xiaomi", Model: "Poco F3", Tier: models.TierHigh},
	{Brand: "Motorola", Model: "Moto E7", Tier: models.TierLow},
	{Brand: "Motorola", Model: "Moto G8", Tier: models.TierMedium},
	{Brand: "Motorola", Model: "Moto G22", Tier: models.TierMedium},
	{Brand: "Motorola", Model: "Moto G52", Tier: models.TierMedium},
	{Brand: "Huawei", Model: "Y9 Prime", Tier: models.TierMedium},
	{Brand: "Huawei", Model: "P30 Lite", Tier: models.TierMedium},
	{Brand: "Tecno", Model: "Spark 7", Tier: models.TierLow},
	{Brand: "Tecno", Model: "Spark 10", Tier: models.TierMedium},
	{Brand: "Infinix", Model: "Hot 11", Tier: models.TierLow},
	{Brand: "Oppo", Model: "A57", Tier: models.TierMedium},
	{Brand: "Realme", Model: "C35", Tier: models.TierMedium},
	{Brand: "Apple", Model: "iPhone 8", Tier: models.TierMedium},
	{Brand: "Apple", Model: "iPhone 11", Tier: models.TierHigh},
	{Brand: "Apple", Model: "iPhone 13", Tier: models.TierHigh},
}

// normalizeModel folds case and collapses runs of whitespace so that
// " redmi  NOTE 8" and "Redmi Note 8" share a key. Casers are stateful, so
// one is built per call.
func normalizeModel(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	byModel map[string]models.DeviceTierEntry
	// longest model first so MatchHint prefers "Redmi 9A" over "Redmi 9"
	ordered []models.DeviceTierEntry
}

func NewCatalog(entries []models.DeviceTierEntry) *Catalog {
	c := &Catalog{
		byModel: make(map[string]models.DeviceTierEntry, len(entries)),
		ordered: make([]models.DeviceTierEntry, 0, len(entries)),
	}
	for _, e := range entries {
		c.byModel[normalizeModel(e.Model)] = e
		c.ordered = append(c.ordered, e)
	}
	sort.SliceStable(c.ordered, func(i, j int) bool {
		return len(c.ordered[i].Model) > len(c.ordered[j].Model)
	})
	return c
}

func DefaultCatalog() *Catalog {
	return NewCatalog(devices)
}

// Lookup is a case-insensitive exact match on the model name.
func (c *Catalog) Lookup(model string) (models.DeviceTierEntry, bool) {
	e, ok := c.byModel[normalizeModel(model)]
	return e, ok
}

// TierFor resolves a free-text device name to a tier, medium when unknown.
func (c *Catalog) TierFor(device string) models.Tier {
	if e, ok := c.Lookup(device); ok {
		return e.Tier
	}
	return models.TierMedium
}

// MatchHint finds the first catalog model contained in a client hint or
// User-Agent string.
func (c *Catalog) MatchHint(hint string) (models.DeviceTierEntry, bool) {
	h := normalizeModel(hint)
	if h == "" {
		return models.DeviceTierEntry{}, false
	}
	for _, e := range c.ordered {
		if strings.Contains(h, normalizeModel(e.Model)) {
			return e, true
		}
	}
	return models.DeviceTierEntry{}, false
}

func (c *Catalog) Entries() []models.DeviceTierEntry {
	out := make([]models.DeviceTierEntry, len(c.ordered))
	copy(out, c.ordered)
	return out
}
