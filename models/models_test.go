package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileValid(t *testing.T) {
	p := Profile{General: 100, RedDot: 90, Scope2x: 85, Scope4x: 75, SniperScope: 50, FreeLook: 120, FireButton: 60, DPI: 320}
	assert.True(t, p.Valid())

	p.DPI = 310
	assert.False(t, p.Valid())

	p.DPI = 400
	p.FreeLook = 201
	assert.False(t, p.Valid())
}

func TestTierValid(t *testing.T) {
	assert.True(t, TierMedium.Valid())
	assert.False(t, Tier("ultra").Valid())
}
