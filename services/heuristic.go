package services

import (
	"math/rand/v2"

	"sensiboost/models"
)

type span struct{ lo, hi int }

func (s span) draw() int {
	return s.lo + rand.IntN(s.hi-s.lo+1)
}

type tierRanges struct {
	general, redDot, scope2x, scope4x, sniper, freeLook, fire span
	dpi                                                         [3]int
}

// Ranges widen and move up with the tier. All bounds sit inside [0, 200].
var heuristicTable = map[models.Tier]tierRanges{
	models.TierLow: {
		general: span{90, 120}, redDot: span{80, 110}, scope2x: span{75, 105}, scope4x: span{60, 90},
		sniper: span{40, 70}, freeLook: span{100, 130}, fire: span{50, 80},
		dpi: [3]int{300, 320, 360},
	},
	models.TierMedium: {
		general: span{110, 150}, redDot: span{100, 140}, scope2x: span{95, 135}, scope4x: span{80, 120},
		sniper: span{55, 95}, freeLook: span{120, 160}, fire: span{65, 105},
		dpi: [3]int{320, 360, 400},
	},
	models.TierHigh: {
		general: span{140, 190}, redDot: span{130, 180}, scope2x: span{120, 170}, scope4x: span{100, 150},
		sniper: span{70, 120}, freeLook: span{150, 200}, fire: span{80, 130},
		dpi: [3]int{360, 400, 480},
	},
}

// HeuristicProfile draws a random profile for the tier. It is deliberately
// non-deterministic: two calls with the same tier normally differ, and
// callers may rely only on every value lying in the tier's ranges. Unknown
// tiers are treated as medium.
func HeuristicProfile(tier models.Tier) models.Profile {
	r, ok := heuristicTable[tier]
	if !ok {
		r = heuristicTable[models.TierMedium]
	}
	return models.Profile{
		General:     r.general.draw(),
		RedDot:      r.redDot.draw(),
		Scope2x:     r.scope2x.draw(),
		Scope4x:     r.scope4x.draw(),
		SniperScope: r.sniper.draw(),
		FreeLook:    r.freeLook.draw(),
		FireButton:  r.fire.draw(),
		DPI:         r.dpi[rand.IntN(len(r.dpi))],
	}
}
