package core

// BandOffsets are the raw risky/unlikely offsets for one anchor or phase as
// supplied by preferences. Sign is ignored; nil means zero.
type BandOffsets struct {
	RiskyFrom    *int `json:"risky_from,omitempty" yaml:"risky_from,omitempty"`
	RiskyTo      *int `json:"risky_to,omitempty" yaml:"risky_to,omitempty"`
	UnlikelyFrom *int `json:"unlikely_from,omitempty" yaml:"unlikely_from,omitempty"`
	UnlikelyTo   *int `json:"unlikely_to,omitempty" yaml:"unlikely_to,omitempty"`
}

// Band is a signed day-offset envelope around an anchor date.
// RiskyFrom <= 0 <= RiskyTo, UnlikelyFrom <= RiskyFrom, UnlikelyTo >= RiskyTo.
type Band struct {
	RiskyFrom    int `json:"risky_from"`
	RiskyTo      int `json:"risky_to"`
	UnlikelyFrom int `json:"unlikely_from"`
	UnlikelyTo   int `json:"unlikely_to"`
}

// IsZero reports a zero-width band.
func (b Band) IsZero() bool {
	return b == Band{}
}

// NormalizeBand canonicalizes raw offsets into a Band. Magnitudes are taken
// from the inputs regardless of sign, the "from" side is negative and the
// "to" side positive. An unlikely side narrower than its risky side is
// raised to match it. With autoWiden, an unlikely side that coincides with
// its risky side is pushed one day further out; the other side is left
// alone. An all-zero input stays a zero-width band.
func NormalizeBand(in BandOffsets, autoWiden bool) Band {
	riskyFrom := magnitude(in.RiskyFrom)
	riskyTo := magnitude(in.RiskyTo)
	rawUnlikelyFrom := magnitude(in.UnlikelyFrom)
	rawUnlikelyTo := magnitude(in.UnlikelyTo)
	if riskyFrom == 0 && riskyTo == 0 && rawUnlikelyFrom == 0 && rawUnlikelyTo == 0 {
		return Band{}
	}
	unlikelyFrom := widen(riskyFrom, rawUnlikelyFrom, autoWiden)
	unlikelyTo := widen(riskyTo, rawUnlikelyTo, autoWiden)
	return Band{
		RiskyFrom:    -riskyFrom,
		RiskyTo:      riskyTo,
		UnlikelyFrom: -unlikelyFrom,
		UnlikelyTo:   unlikelyTo,
	}
}

func widen(risky, unlikely int, autoWiden bool) int {
	if unlikely < risky {
		unlikely = risky
	}
	if autoWiden && unlikely == risky {
		unlikely++
	}
	return unlikely
}

func magnitude(v *int) int {
	if v == nil {
		return 0
	}
	if *v < 0 {
		return -*v
	}
	return *v
}

// Offsets is a small constructor used by callers building BandOffsets inline.
func Offsets(riskyFrom, riskyTo, unlikelyFrom, unlikelyTo int) BandOffsets {
	return BandOffsets{
		RiskyFrom:    &riskyFrom,
		RiskyTo:      &riskyTo,
		UnlikelyFrom: &unlikelyFrom,
		UnlikelyTo:   &unlikelyTo,
	}
}
