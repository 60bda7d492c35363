package geocell

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// EarthRadiusMeters is the mean Earth radius used for ranking distances.
const EarthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Bound converts the box to an orb bound (x = longitude, y = latitude).
func (b Box) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b Box) Contains(lat, lon float64) bool {
	return b.Bound().Contains(orb.Point{lon, lat})
}

// BoundingBox returns a box that encloses the circle of radiusMeters around
// (lat, lon). Sources use it as a coarse SQL or Mongo prefilter.
func BoundingBox(lat, lon, radiusMeters float64) orb.Bound {
	return geo.NewBoundAroundPoint(orb.Point{lon, lat}, radiusMeters)
}

// CellsBound returns the union of the cells' boxes.
func CellsBound(cells []string) (orb.Bound, error) {
	var bound orb.Bound
	for i, c := range cells {
		box, err := Decode(c)
		if err != nil {
			return orb.Bound{}, err
		}
		if i == 0 {
			bound = box.Bound()
			continue
		}
		bound = bound.Union(box.Bound())
	}
	return bound, nil
}
