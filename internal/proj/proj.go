// Package proj converts longitude/latitude observation coordinates into
// planar metre coordinates.
//
// Two projections are provided. The north polar stereographic plane is a
// fixed definition (pole at 90N, true scale at 70N, central meridian 0,
// WGS84 ellipsoid) so that coverage grids produced by different runs
// align cell for cell. The azimuthal equidistant plane is centred on the
// mean position of each input batch: its absolute coordinates are not
// comparable across invocations, only the relative topology is.
package proj

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// ErrProjection reports input coordinates outside the valid
// longitude/latitude ranges.
var ErrProjection = errors.New("proj: coordinate out of range")

// WGS84 ellipsoid.
const (
	wgs84A = 6378137.0         // semi-major axis (m)
	wgs84F = 1 / 298.257223563 // flattening
)

// Fixed polar stereographic definition.
const (
	stereLatTS = 70.0 // latitude of true scale (deg N)
	stereLon0  = 0.0  // central meridian (deg E)
)

// earthRadiusMeters is the mean earth radius used for the spherical
// azimuthal equidistant plane.
const earthRadiusMeters = 6371008.8

// XY is a projected point in metres.
type XY struct {
	X float64
	Y float64
}

func validate(lons, lats []float64) error {
	if len(lons) != len(lats) {
		return fmt.Errorf("%w: %d longitudes vs %d latitudes", ErrProjection, len(lons), len(lats))
	}
	for i := range lons {
		ll := s2.LatLng{Lat: s1.Angle(lats[i] * math.Pi / 180), Lng: s1.Angle(lons[i] * math.Pi / 180)}
		if math.IsNaN(lons[i]) || math.IsNaN(lats[i]) || !ll.IsValid() {
			return fmt.Errorf("%w: point %d (lon=%v lat=%v)", ErrProjection, i, lons[i], lats[i])
		}
	}
	return nil
}

// PolarStereo projects lon/lat degree pairs onto the fixed north polar
// stereographic plane. The north pole maps to the origin; y is negative
// along the central meridian in the northern hemisphere.
func PolarStereo(lons, lats []float64) ([]XY, error) {
	if err := validate(lons, lats); err != nil {
		return nil, err
	}

	e2 := wgs84F * (2 - wgs84F)
	e := math.Sqrt(e2)

	// Scale factor from the latitude of true scale (Snyder 21-32..34).
	tTS := stereT(stereLatTS*math.Pi/180, e)
	mTS := stereM(stereLatTS*math.Pi/180, e2)

	out := make([]XY, len(lons))
	for i := range lons {
		phi := lats[i] * math.Pi / 180
		lam := (lons[i] - stereLon0) * math.Pi / 180

		rho := wgs84A * mTS * stereT(phi, e) / tTS
		out[i] = XY{
			X: rho * math.Sin(lam),
			Y: -rho * math.Cos(lam),
		}
	}
	return out, nil
}

// stereT is Snyder's t(phi): the isometric colatitude factor.
func stereT(phi, e float64) float64 {
	sin := e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-sin)/(1+sin), e/2)
}

// stereM is Snyder's m(phi).
func stereM(phi, e2 float64) float64 {
	sin := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e2*sin*sin)
}

// AzimuthalEquidistant projects lon/lat degree pairs onto a locally flat
// plane centred at the arithmetic mean position of the batch. Distances
// from the centre are preserved; x points east and y north at the
// centre.
func AzimuthalEquidistant(lons, lats []float64) ([]XY, error) {
	if err := validate(lons, lats); err != nil {
		return nil, err
	}
	if len(lons) == 0 {
		return []XY{}, nil
	}

	var sumLon, sumLat float64
	for i := range lons {
		sumLon += lons[i]
		sumLat += lats[i]
	}
	center := s2.LatLngFromDegrees(sumLat/float64(len(lats)), sumLon/float64(len(lons)))

	out := make([]XY, len(lons))
	for i := range lons {
		ll := s2.LatLngFromDegrees(lats[i], lons[i])
		d := float64(center.Distance(ll)) * earthRadiusMeters
		theta := initialBearing(center, ll)
		out[i] = XY{
			X: d * math.Sin(theta),
			Y: d * math.Cos(theta),
		}
	}
	return out, nil
}

// initialBearing returns the great-circle bearing from a to b in
// radians, clockwise from north.
func initialBearing(a, b s2.LatLng) float64 {
	dLng := float64(b.Lng - a.Lng)
	lat1 := float64(a.Lat)
	lat2 := float64(b.Lat)
	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return math.Atan2(y, x)
}
