// Package geo is the geo-index adapter: it converts coordinates to geohash
// strings and computes the lexicographic ranges that cover a search disc.
//
// Go Learning Note — What is a Geohash?
// A geohash is a way to encode a latitude/longitude pair into a short string.
// The key property is that nearby locations share a common prefix, and that all
// points inside one cell share the cell's geohash as a prefix. A store that can
// only do sorted range scans ("geohash >= low AND geohash < high") can therefore
// answer "who is near me" by scanning a handful of ranges and filtering the
// result by exact distance afterwards.
//
// Precision determines the cell size:
//
//	1 → ~5000 km    4 → ~39 km     7 → ~153 m    10 → ~1.2 m
//	2 → ~1250 km    5 → ~5 km      8 → ~19 m     11 → ~15 cm
//	3 → ~156 km     6 → ~1.2 km    9 → ~2.4 m    12 → ~1.9 cm
//
// Stored hashes default to precision 10. Query ranges never use more characters
// than the stored precision, otherwise a stored hash could be a proper prefix of
// a range boundary and compare on the wrong side of it.
package geo

import (
	"math"
	"strings"

	"nearby/internal/domain"
)

// base32 is the geohash character set (32 characters). Note that 'a', 'i',
// 'l', and 'o' are excluded to avoid confusion with digits 0/1.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

const (
	// DefaultPrecision is the stored geohash length when none is configured.
	DefaultPrecision = 10
	// MaxPrecision is the longest geohash Encode produces.
	MaxPrecision     = 12

	bitsPerChar  = 5
	maxQueryBits = 22 * bitsPerChar

	// rangeEnd sorts after every base32 character and closes a range that
	// would otherwise need a carry into the parent cell.
	rangeEnd = "~"
)

// base32Map is the reverse lookup from character to 5-bit value.
var base32Map = map[byte]int{}

func init() {
	for i := 0; i < len(base32); i++ {
		base32Map[base32[i]] = i
	}
}

// ValidateCoordinate reports domain.ErrInvalidCoordinate for out-of-range or
// non-finite values.
func ValidateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return domain.ErrInvalidCoordinate
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.ErrInvalidCoordinate
	}
	return nil
}

// ValidateRadius reports domain.ErrInvalidRadius for non-positive or
// non-finite radii.
func ValidateRadius(radiusMeters float64) error {
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters <= 0 {
		return domain.ErrInvalidRadius
	}
	return nil
}

// ClampPrecision maps a configured precision into [1, MaxPrecision];
// non-positive values select DefaultPrecision.
func ClampPrecision(precision int) int {
	if precision <= 0 {
		return DefaultPrecision
	}
	if precision > MaxPrecision {
		return MaxPrecision
	}
	return precision
}

// Encode converts latitude and longitude to a geohash string with given precision.
// The caller is expected to have validated the coordinate.
//
// Algorithm overview (binary interleaving):
//  1. Start with the full range: lat [-90, 90], lon [-180, 180]
//  2. Alternate between longitude (even bits) and latitude (odd bits)
//  3. For each step, bisect the range and set bit=1 if value >= midpoint
//  4. Every 5 bits are encoded as one base32 character
//
// Go Learning Note — strings.Builder:
// strings.Builder is the idiomatic way to efficiently build strings in Go.
// Never build strings with repeated concatenation (s += "x") in a loop — that
// allocates a new string each iteration because Go strings are immutable.
func Encode(lat, lon float64, precision int) string {
	precision = ClampPrecision(precision)

	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	var hash strings.Builder
	hash.Grow(precision)
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLon + maxLon) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				minLon = mid
			} else {
				maxLon = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == bitsPerChar {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// decode converts a geohash string back to the center latitude and longitude
// of the encoded cell. Characters outside the alphabet are ignored.
func decode(hash string) (lat, lon float64) {
	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0
	isEven := true

	for i := 0; i < len(hash); i++ {
		cd, ok := base32Map[hash[i]]
		if !ok {
			continue
		}
		for j := 4; j >= 0; j-- {
			bit := (cd >> j) & 1
			if isEven {
				mid := (minLon + maxLon) / 2
				if bit == 1 {
					minLon = mid
				} else {
					maxLon = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if bit == 1 {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			isEven = !isEven
		}
	}

	lat = (minLat + maxLat) / 2
	lon = (minLon + maxLon) / 2
	return
}

// Contains reports whether hash falls inside the half-open bound.
func Contains(b domain.Bound, hash string) bool {
	return hash >= b.Low && hash < b.High
}

// queryBound returns the range of all hashes sharing the first `bits` bits
// of hash. When the range would end past 'z' it is closed with rangeEnd.
func queryBound(hash string, bits int) domain.Bound {
	precision := (bits + bitsPerChar - 1) / bitsPerChar
	if len(hash) < precision {
		return domain.Bound{Low: hash, High: hash + rangeEnd}
	}
	hash = hash[:precision]
	base := hash[:len(hash)-1]
	last := base32Map[hash[len(hash)-1]]
	significant := bits - len(base)*bitsPerChar
	unused := bitsPerChar - significant

	start := (last >> unused) << unused
	end := start + (1 << unused)
	if end > len(base32)-1 {
		return domain.Bound{Low: base + string(base32[start]), High: base + rangeEnd}
	}
	return domain.Bound{Low: base + string(base32[start]), High: base + string(base32[end])}
}
