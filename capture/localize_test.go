package capture

import (
	"math"
	"testing"

	"skimmer/fields"
	"skimmer/geom"
	"skimmer/particles"
)

func TestGatherEmbeddedSurfaceRZ(t *testing.T) {
	mode := geom.RZ
	domain := geom.Domain{Lo: [3]float64{0, -1, 0}, Hi: [3]float64{2, 1, 0}}
	reg := NewRegistry(mode, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"eb": true}},
	})
	buf := New(reg, domain, singleTile(mode, domain), Options{Workers: 1})
	defer buf.Close()

	// Cylinder of radius 1 about the axis; forbidden region r > 1. The
	// field is sampled over the (r, z) plane.
	phi := fields.NewFromFunc(2, [3]int{65, 65, 0},
		domain.Lo, [3]float64{2, 1, 0},
		func(c [3]float64) float64 { return 1 - c[0] })

	live := particles.NewContainer(particles.Schema{Name: "electrons", Mode: mode}, 1)
	tile := live.DefineAndReturnTile(0, 0)
	tile.Resize(1)
	// Moving radially outward along theta = 0: from r = 0.5 to r = 1.5
	// at ux = 1 over dt = 1.
	tile.SetPosition(0, [3]float64{1.5, 0, 0})
	tile.Theta[0] = 0
	tile.ID[0] = 20
	tile.Mom[0][0] = 1

	n := buf.Gather([]*particles.Container{live}, []*fields.NodalField{phi}, 2, []float64{1})
	if n != 1 {
		t.Fatalf("Gather captured %d, want 1", n)
	}

	c := buf.SpeciesBuffer("electrons", mode.EmbeddedBoundary())
	rec, _ := c.Tile(0, 0)
	p := rec.Position(0)
	// The crossing point is converted back to stored (r, z) coordinates.
	if math.Abs(p[0]-1) > 3e-6 {
		t.Errorf("crossing r = %v, want 1 within bisection tolerance", p[0])
	}
	if p[1] != 0 {
		t.Errorf("crossing z = %v, want 0", p[1])
	}
	if math.Abs(rec.Theta[0]) > 1e-9 {
		t.Errorf("crossing theta = %v, want 0", rec.Theta[0])
	}
}

func TestCartesianStoredRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		mode  geom.Mode
		p     [3]float64
		theta float64
	}{
		{"3d", geom.Cartesian3D, [3]float64{1, -2, 3}, 0},
		{"2d", geom.Cartesian2D, [3]float64{1.5, -0.5, 0}, 0},
		{"rz on axis x", geom.RZ, [3]float64{2, 0.5, 0}, 0},
		{"rz quarter turn", geom.RZ, [3]float64{2, 0.5, 0}, math.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := cartesian(tt.mode, tt.p, tt.theta)
			back := planeCoords(tt.mode, x, y, z)
			dim := tt.mode.Dim()
			for a := 0; a < dim; a++ {
				if math.Abs(back[a]-tt.p[a]) > 1e-12 {
					t.Errorf("axis %d: round trip %v -> %v", a, tt.p, back)
				}
			}
		})
	}
}
