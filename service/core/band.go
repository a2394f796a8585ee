package core

import (
	sm "gti/service/models"
)

type Band string

const (
	BandGreen  Band = "green"
	BandOrange Band = "orange"
	BandRed    Band = "red"
)

// BandFor colours a published value, >= 70 green, >= 40 orange, red below
func BandFor(value float64) Band {
	switch {
	case value >= sm.BandGreenFrom:
		return BandGreen
	case value >= sm.BandOrangeFrom:
		return BandOrange
	default:
		return BandRed
	}
}
