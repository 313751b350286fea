package proj

import (
	"errors"
	"math"
	"testing"
)

func TestPolarStereoPole(t *testing.T) {
	pts, err := PolarStereo([]float64{0}, []float64{90})
	if err != nil {
		t.Fatalf("PolarStereo failed: %v", err)
	}
	if math.Abs(pts[0].X) > 1e-6 || math.Abs(pts[0].Y) > 1e-6 {
		t.Errorf("pole projected to (%f, %f), want origin", pts[0].X, pts[0].Y)
	}
}

func TestPolarStereoCentralMeridian(t *testing.T) {
	// Along the central meridian x must be zero and y negative in the
	// northern hemisphere.
	pts, err := PolarStereo([]float64{0, 0, 0}, []float64{85, 75, 65})
	if err != nil {
		t.Fatalf("PolarStereo failed: %v", err)
	}
	prev := 0.0
	for i, p := range pts {
		if math.Abs(p.X) > 1e-6 {
			t.Errorf("point %d: x = %f, want 0 on central meridian", i, p.X)
		}
		if p.Y >= 0 {
			t.Errorf("point %d: y = %f, want negative", i, p.Y)
		}
		if math.Abs(p.Y) <= prev {
			t.Errorf("point %d: |y| = %f not increasing away from pole", i, math.Abs(p.Y))
		}
		prev = math.Abs(p.Y)
	}
}

func TestPolarStereoQuadrants(t *testing.T) {
	tests := []struct {
		name  string
		lon   float64
		wantX float64 // sign
		wantY float64 // sign
	}{
		{"east", 90, 1, 0},
		{"west", -90, -1, 0},
		{"anti-meridian", 180, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts, err := PolarStereo([]float64{tt.lon}, []float64{70})
			if err != nil {
				t.Fatalf("PolarStereo failed: %v", err)
			}
			p := pts[0]
			if tt.wantX != 0 && math.Signbit(p.X) != math.Signbit(tt.wantX) {
				t.Errorf("x = %f, want sign %v", p.X, tt.wantX)
			}
			if tt.wantY != 0 && math.Signbit(p.Y) != math.Signbit(tt.wantY) {
				t.Errorf("y = %f, want sign %v", p.Y, tt.wantY)
			}
		})
	}
}

func TestPolarStereoLonSymmetry(t *testing.T) {
	pts, err := PolarStereo([]float64{45, -45}, []float64{72, 72})
	if err != nil {
		t.Fatalf("PolarStereo failed: %v", err)
	}
	if math.Abs(pts[0].X+pts[1].X) > 1e-6 {
		t.Errorf("x not antisymmetric across the central meridian: %f vs %f", pts[0].X, pts[1].X)
	}
	if math.Abs(pts[0].Y-pts[1].Y) > 1e-6 {
		t.Errorf("y not symmetric across the central meridian: %f vs %f", pts[0].Y, pts[1].Y)
	}
}

func TestPolarStereoDeterministic(t *testing.T) {
	// The plane is fixed: two separate calls must agree exactly.
	a, err := PolarStereo([]float64{-120.5}, []float64{78.25})
	if err != nil {
		t.Fatalf("PolarStereo failed: %v", err)
	}
	b, err := PolarStereo([]float64{10, -120.5}, []float64{80, 78.25})
	if err != nil {
		t.Fatalf("PolarStereo failed: %v", err)
	}
	if a[0] != b[1] {
		t.Errorf("same coordinate projected differently: %+v vs %+v", a[0], b[1])
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		lon  float64
		lat  float64
	}{
		{"lat too high", 0, 90.001},
		{"lat too low", 0, -91},
		{"lon too high", 180.5, 70},
		{"lon too low", -200, 70},
		{"nan lon", math.NaN(), 70},
		{"nan lat", 0, math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PolarStereo([]float64{tt.lon}, []float64{tt.lat}); !errors.Is(err, ErrProjection) {
				t.Errorf("PolarStereo error = %v, want ErrProjection", err)
			}
			if _, err := AzimuthalEquidistant([]float64{tt.lon}, []float64{tt.lat}); !errors.Is(err, ErrProjection) {
				t.Errorf("AzimuthalEquidistant error = %v, want ErrProjection", err)
			}
		})
	}
}

func TestValidateRejectsMismatchedLengths(t *testing.T) {
	if _, err := PolarStereo([]float64{0, 1}, []float64{70}); !errors.Is(err, ErrProjection) {
		t.Errorf("error = %v, want ErrProjection", err)
	}
}

func TestAzimuthalEquidistantCenter(t *testing.T) {
	// A single point is its own batch mean and lands at the origin.
	pts, err := AzimuthalEquidistant([]float64{-83.2}, []float64{76.4})
	if err != nil {
		t.Fatalf("AzimuthalEquidistant failed: %v", err)
	}
	if math.Abs(pts[0].X) > 1e-6 || math.Abs(pts[0].Y) > 1e-6 {
		t.Errorf("batch mean projected to (%f, %f), want origin", pts[0].X, pts[0].Y)
	}
}

func TestAzimuthalEquidistantBearing(t *testing.T) {
	// Two points on one meridian: the mean is between them, the
	// northern point projects due north of the origin.
	pts, err := AzimuthalEquidistant([]float64{-80, -80}, []float64{77, 75})
	if err != nil {
		t.Fatalf("AzimuthalEquidistant failed: %v", err)
	}
	if math.Abs(pts[0].X) > 1.0 {
		t.Errorf("northern point x = %f, want ~0", pts[0].X)
	}
	if pts[0].Y <= 0 || pts[1].Y >= 0 {
		t.Errorf("y signs = (%f, %f), want (+, -)", pts[0].Y, pts[1].Y)
	}
	// One degree of latitude is roughly 111 km.
	if got := pts[0].Y - pts[1].Y; math.Abs(got-2*111195) > 500 {
		t.Errorf("meridional separation = %f m, want ~222390 m", got)
	}
}

func TestAzimuthalEquidistantPreservesDistanceFromCenter(t *testing.T) {
	lons := []float64{-80, -70, -90, -75}
	lats := []float64{76, 74, 78, 75}
	pts, err := AzimuthalEquidistant(lons, lats)
	if err != nil {
		t.Fatalf("AzimuthalEquidistant failed: %v", err)
	}
	// Each radial distance must be a genuine great-circle distance:
	// bounded by half the circumference.
	for i, p := range pts {
		r := math.Hypot(p.X, p.Y)
		if r < 0 || r > math.Pi*earthRadiusMeters {
			t.Errorf("point %d: radial distance %f out of range", i, r)
		}
	}
}

func TestAzimuthalEquidistantEmpty(t *testing.T) {
	pts, err := AzimuthalEquidistant(nil, nil)
	if err != nil {
		t.Fatalf("AzimuthalEquidistant failed: %v", err)
	}
	if len(pts) != 0 {
		t.Errorf("got %d points, want 0", len(pts))
	}
}
