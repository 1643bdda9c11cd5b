package geo

import (
	"math"

	"nearby/internal/domain"
)

const (
	metersPerDegreeLatitude  = 110574.0
	earthEquatorialRadius    = 6378137.0
	earthEccentricitySquared = 0.00669447819799
	epsilon                  = 1e-12

	// radiusSlack widens the sampled box so the ellipsoidal degree
	// conversion never under-covers the spherical disc used by Haversine.
	radiusSlack = 1.01
)

// CoveringBounds returns the half-open geohash ranges that together contain
// every point within radiusMeters of (lat, lon). precision is the length of
// the stored hashes; no range is narrower than one cell at that precision.
//
// Strategy: pick the number of hash bits whose cell is at least as large as
// the radius, then take the cells containing the center and the eight corners
// and edge midpoints of the disc's bounding box. Because each cell spans at
// least the spacing between sample points, every point of the box lands in a
// sampled cell. Duplicate ranges are removed; at most nine remain. A disc
// that reaches a pole or wraps all the way around the globe gets 1-bit cells,
// so both longitude hemispheres are scanned.
func CoveringBounds(lat, lon, radiusMeters float64, precision int) ([]domain.Bound, error) {
	if err := ValidateCoordinate(lat, lon); err != nil {
		return nil, err
	}
	if err := ValidateRadius(radiusMeters); err != nil {
		return nil, err
	}

	radius := radiusMeters * radiusSlack
	bits := boundingBoxBits(lat, radius)
	if limit := ClampPrecision(precision) * bitsPerChar; bits > limit {
		bits = limit
	}
	if bits < 1 {
		bits = 1
	}
	hashLen := (bits + bitsPerChar - 1) / bitsPerChar

	points := boundingBoxCoordinates(lat, lon, radius)
	bounds := make([]domain.Bound, 0, len(points))
	seen := make(map[domain.Bound]struct{}, len(points))
	for _, p := range points {
		b := queryBound(Encode(p[0], p[1], hashLen), bits)
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		bounds = append(bounds, b)
	}
	return bounds, nil
}

// boundingBoxCoordinates returns the center, the four edge midpoints and the
// four corners of the box around the disc. When the box reaches a pole or is
// at least a full turn wide, the east and west edges fold onto the center
// meridian, so each sampled latitude is taken at four meridians a quarter
// turn apart instead.
func boundingBoxCoordinates(lat, lon, radius float64) [][2]float64 {
	latDegrees := radius / metersPerDegreeLatitude
	north := math.Min(90, lat+latDegrees)
	south := math.Max(-90, lat-latDegrees)
	lonDegrees := math.Max(metersToLongitudeDegrees(radius, north), metersToLongitudeDegrees(radius, south))

	var lons []float64
	if north >= 90 || south <= -90 || 2*lonDegrees >= 360 {
		lons = []float64{lon, wrapLongitude(lon + 90), wrapLongitude(lon + 180), wrapLongitude(lon - 90)}
	} else {
		lons = []float64{lon, wrapLongitude(lon - lonDegrees), wrapLongitude(lon + lonDegrees)}
	}

	points := make([][2]float64, 0, 3*len(lons))
	for _, pLat := range []float64{lat, north, south} {
		for _, pLon := range lons {
			points = append(points, [2]float64{pLat, pLon})
		}
	}
	return points
}

// boundingBoxBits is the largest number of hash bits whose cells are still
// at least radius tall and wide anywhere in the box.
func boundingBoxBits(lat, radius float64) int {
	latDegrees := radius / metersPerDegreeLatitude
	north := math.Min(90, lat+latDegrees)
	south := math.Max(-90, lat-latDegrees)

	bitsLat := int(math.Floor(latitudeBitsForResolution(radius))) * 2
	bitsLonNorth := int(math.Floor(longitudeBitsForResolution(radius, north)))*2 - 1
	bitsLonSouth := int(math.Floor(longitudeBitsForResolution(radius, south)))*2 - 1

	return min(bitsLat, bitsLonNorth, bitsLonSouth, maxQueryBits)
}

// latitudeBitsForResolution measures the meridian with the same degree length
// used to place the sample points, so a cell is never shorter than their spacing.
func latitudeBitsForResolution(resolution float64) float64 {
	return math.Min(math.Log2(180*metersPerDegreeLatitude/resolution), maxQueryBits)
}

func longitudeBitsForResolution(resolution, lat float64) float64 {
	degrees := metersToLongitudeDegrees(resolution, lat)
	if math.Abs(degrees) > 0.000001 {
		return math.Max(1, math.Log2(360/degrees))
	}
	return 1
}

// metersToLongitudeDegrees converts a distance along a parallel into degrees
// of longitude on the WGS84 ellipsoid, capped at 360.
func metersToLongitudeDegrees(distance, lat float64) float64 {
	radians := lat * math.Pi / 180
	num := math.Cos(radians) * earthEquatorialRadius * math.Pi / 180
	denom := 1 / math.Sqrt(1-earthEccentricitySquared*math.Sin(radians)*math.Sin(radians))
	deltaDeg := num * denom
	if deltaDeg < epsilon {
		if distance > 0 {
			return 360
		}
		return 0
	}
	return math.Min(360, distance/deltaDeg)
}

// wrapLongitude folds a longitude back into [-180, 180].
func wrapLongitude(lon float64) float64 {
	if lon <= 180 && lon >= -180 {
		return lon
	}
	adjusted := lon + 180
	if adjusted > 0 {
		return math.Mod(adjusted, 360) - 180
	}
	return 180 - math.Mod(-adjusted, 360)
}
