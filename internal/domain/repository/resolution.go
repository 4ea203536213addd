package repository

// Resolution is the candle bucket size understood by the upstream API.
type Resolution string

const (
	Res1m  Resolution = "1"
	Res5m  Resolution = "5"
	Res15m Resolution = "15"
	Res30m Resolution = "30"
	Res1h  Resolution = "60"
	ResDay Resolution = "D"
	ResWk  Resolution = "W"
	ResMo  Resolution = "M"
)

// IsValidResolution returns true if r is a supported resolution.
func IsValidResolution(r Resolution) bool {
	switch r {
	case Res1m, Res5m, Res15m, Res30m, Res1h, ResDay, ResWk, ResMo:
		return true
	default:
		return false
	}
}

// NormalizeResolution converts a raw string to a valid resolution, defaulting to daily.
func NormalizeResolution(s string) Resolution {
	r := Resolution(s)
	if IsValidResolution(r) {
		return r
	}
	return ResDay
}
