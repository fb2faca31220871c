package capture

import (
	"math"
	"testing"

	"skimmer/fields"
	"skimmer/geom"
	"skimmer/particles"
)

func cubeDomain(h float64) geom.Domain {
	return geom.Domain{Lo: [3]float64{-h, -h, -h}, Hi: [3]float64{h, h, h}}
}

func singleTile(mode geom.Mode, d geom.Domain) *geom.Decomposition {
	return geom.NewUniform(mode, d, [3]int{1, 1, 1}, 1, 1)
}

func newLive(mode geom.Mode) *particles.Container {
	return particles.NewContainer(particles.Schema{Name: "electrons", Mode: mode}, 1)
}

func TestGatherDomainBoundary(t *testing.T) {
	domain := cubeDomain(1)
	reg := NewRegistry(geom.Cartesian3D, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"xlo": true}},
	})
	buf := New(reg, domain, singleTile(geom.Cartesian3D, domain), Options{Workers: 1})
	defer buf.Close()

	live := newLive(geom.Cartesian3D)
	tile := live.DefineAndReturnTile(0, 0)
	tile.Resize(3)
	tile.SetPosition(0, [3]float64{0, 0, 0}) // interior
	tile.ID[0] = 1
	tile.SetPosition(1, [3]float64{-1 - 1e-6, 0.5, 0.5}) // just past xlo
	tile.ID[1] = 2
	tile.Mom[0][1], tile.Mom[1][1], tile.Mom[2][1] = 1, 2, 3
	tile.Weight[1] = 0.25
	tile.SetPosition(2, [3]float64{1.5, 0, 0}) // past xhi, which is disabled
	tile.ID[2] = 3

	n := buf.Gather([]*particles.Container{live}, nil, 7, []float64{1e-9})
	if n != 1 {
		t.Fatalf("Gather captured %d, want 1", n)
	}

	xlo := geom.BoundaryIndex(0, 0)
	if got := buf.Count("electrons", xlo, false); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}

	c := buf.SpeciesBuffer("electrons", xlo)
	rec, ok := c.Tile(0, 0)
	if !ok || rec.NumParticles() != 1 {
		t.Fatal("capture buffer tile missing or wrong size")
	}
	// Domain-side capture copies attributes verbatim, no localization.
	if rec.Position(0) != [3]float64{-1 - 1e-6, 0.5, 0.5} {
		t.Errorf("captured position = %v, want the post-push position", rec.Position(0))
	}
	if rec.ID[0] != 2 || rec.Weight[0] != 0.25 || rec.Mom[2][0] != 3 {
		t.Error("captured record attributes not copied verbatim")
	}
	stamp := c.Schema().IntAttrIndex(StampAttr)
	if stamp < 0 {
		t.Fatal("capture buffer schema is missing the step stamp attribute")
	}
	if rec.Int[stamp][0] != 7 {
		t.Errorf("capture step = %d, want 7", rec.Int[stamp][0])
	}

	// The live container is never mutated by a gather.
	if tile.NumParticles() != 3 || tile.Position(1) != [3]float64{-1 - 1e-6, 0.5, 0.5} {
		t.Error("Gather modified the live container")
	}

	// The disabled xhi boundary captured nothing and allocated nothing.
	xhi := geom.BoundaryIndex(0, 1)
	if buf.IsDefined("electrons", xhi) || buf.Count("electrons", xhi, false) != 0 {
		t.Error("disabled boundary must stay unallocated with count 0")
	}
}

func TestGatherLazyAllocation(t *testing.T) {
	domain := cubeDomain(1)
	reg := NewRegistry(geom.Cartesian3D, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"xlo": true}},
	})
	buf := New(reg, domain, singleTile(geom.Cartesian3D, domain), Options{Workers: 1})
	defer buf.Close()

	xlo := geom.BoundaryIndex(0, 0)
	if buf.IsDefined("electrons", xlo) {
		t.Fatal("buffer allocated before any gather")
	}
	if buf.Count("electrons", xlo, false) != 0 {
		t.Fatal("never-allocated buffer must report count 0")
	}

	// A gather with zero matches still defines the enabled pair's buffer.
	live := newLive(geom.Cartesian3D)
	tile := live.DefineAndReturnTile(0, 0)
	tile.Resize(1)
	tile.SetPosition(0, [3]float64{0, 0, 0})

	if n := buf.Gather([]*particles.Container{live}, nil, 0, []float64{1e-9}); n != 0 {
		t.Fatalf("Gather captured %d, want 0", n)
	}
	if !buf.IsDefined("electrons", xlo) {
		t.Error("enabled pair should be allocated by its first gather")
	}
	if buf.Count("electrons", xlo, false) != 0 {
		t.Error("allocated-but-empty buffer must report count 0")
	}
}

func TestGatherAccumulatesAcrossSteps(t *testing.T) {
	domain := cubeDomain(1)
	reg := NewRegistry(geom.Cartesian3D, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"zhi": true}},
	})
	buf := New(reg, domain, singleTile(geom.Cartesian3D, domain), Options{Workers: 1})
	defer buf.Close()

	live := newLive(geom.Cartesian3D)
	tile := live.DefineAndReturnTile(0, 0)
	tile.Resize(2)
	tile.SetPosition(0, [3]float64{0, 0, 1.2})
	tile.ID[0] = 1
	tile.SetPosition(1, [3]float64{0, 0, 2.5})
	tile.ID[1] = 2

	zhi := geom.BoundaryIndex(2, 1)
	buf.Gather([]*particles.Container{live}, nil, 1, []float64{1e-9})
	buf.Gather([]*particles.Container{live}, nil, 2, []float64{1e-9})
	if got := buf.Count("electrons", zhi, false); got != 4 {
		t.Fatalf("Count = %d after two gathers, want 4", got)
	}

	// Records from distinct steps carry distinct stamps.
	c := buf.SpeciesBuffer("electrons", zhi)
	stamp := c.Schema().IntAttrIndex(StampAttr)
	rec, _ := c.Tile(0, 0)
	if rec.Int[stamp][0] != 1 || rec.Int[stamp][2] != 2 {
		t.Errorf("stamps = %v, want steps 1,1,2,2", rec.Int[stamp])
	}
}

func TestGatherSkipsPeriodicAxes(t *testing.T) {
	domain := cubeDomain(1)
	domain.Periodic[0] = true
	reg := NewRegistry(geom.Cartesian3D, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"xlo": true, "xhi": true}},
	})
	buf := New(reg, domain, singleTile(geom.Cartesian3D, domain), Options{Workers: 1})
	defer buf.Close()

	live := newLive(geom.Cartesian3D)
	tile := live.DefineAndReturnTile(0, 0)
	tile.Resize(1)
	tile.SetPosition(0, [3]float64{-5, 0, 0})

	if n := buf.Gather([]*particles.Container{live}, nil, 0, []float64{1e-9}); n != 0 {
		t.Fatalf("Gather captured %d on a periodic axis, want 0", n)
	}
	if buf.IsDefined("electrons", geom.BoundaryIndex(0, 0)) {
		t.Error("periodic-axis boundary buffer must not be allocated")
	}
}

func TestGatherEmbeddedSurfaceLocalizes(t *testing.T) {
	mode := geom.Cartesian2D
	domain := geom.Domain{Lo: [3]float64{-2, -2, 0}, Hi: [3]float64{2, 2, 0}}
	reg := NewRegistry(mode, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"eb": true}},
	})
	buf := New(reg, domain, singleTile(mode, domain), Options{Workers: 1})
	defer buf.Close()

	// Planar surface at x = 0, forbidden half-space x > 0.
	phi := fields.NewFromFunc(2, [3]int{65, 65, 0},
		[3]float64{-2, -2, 0}, [3]float64{2, 2, 0},
		func(c [3]float64) float64 { return -c[0] })

	live := newLive(mode)
	tile := live.DefineAndReturnTile(0, 0)
	tile.Resize(2)
	// Crossed this step: moved from x = -1 to x = +1 at ux = 2 over dt = 1.
	tile.SetPosition(0, [3]float64{1, 0.3, 0})
	tile.ID[0] = 10
	tile.Mom[0][0] = 2
	tile.Weight[0] = 1.5
	// Still outside the surface.
	tile.SetPosition(1, [3]float64{-0.5, 0, 0})
	tile.ID[1] = 11

	n := buf.Gather([]*particles.Container{live}, []*fields.NodalField{phi}, 3, []float64{1})
	if n != 1 {
		t.Fatalf("Gather captured %d, want 1", n)
	}

	eb := mode.EmbeddedBoundary()
	c := buf.SpeciesBuffer("electrons", eb)
	rec, _ := c.Tile(0, 0)
	if rec.NumParticles() != 1 || rec.ID[0] != 10 {
		t.Fatal("wrong record captured at the embedded surface")
	}

	// Bisection over the backward fraction lands on the x = 0 crossing
	// plane: tolerance 1e-6 in f means 2e-6 in x here.
	p := rec.Position(0)
	if math.Abs(p[0]) > 3e-6 {
		t.Errorf("crossing x = %v, want 0 within bisection tolerance", p[0])
	}
	if p[1] != 0.3 {
		t.Errorf("crossing z = %v, want 0.3 (no motion along z)", p[1])
	}
	if rec.Weight[0] != 1.5 || rec.Mom[0][0] != 2 {
		t.Error("non-positional attributes must copy verbatim")
	}
	stamp := c.Schema().IntAttrIndex(StampAttr)
	if rec.Int[stamp][0] != 3 {
		t.Errorf("capture step = %d, want 3", rec.Int[stamp][0])
	}

	// Localization rewrites only the buffered copy.
	if tile.Position(0) != [3]float64{1, 0.3, 0} {
		t.Error("Gather moved a live particle")
	}
}

func TestGatherPanicsWithoutLevelSet(t *testing.T) {
	domain := cubeDomain(1)
	reg := NewRegistry(geom.Cartesian3D, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"eb": true}},
	})
	buf := New(reg, domain, singleTile(geom.Cartesian3D, domain), Options{Workers: 1})
	defer buf.Close()

	live := newLive(geom.Cartesian3D)
	live.DefineAndReturnTile(0, 0).Resize(1)

	defer func() {
		if recover() == nil {
			t.Error("Gather must panic when eb capture is enabled but phi is nil")
		}
	}()
	buf.Gather([]*particles.Container{live}, nil, 0, []float64{1e-9})
}

func TestGatherPanicsOnSpeciesMismatch(t *testing.T) {
	domain := cubeDomain(1)
	reg := NewRegistry(geom.Cartesian3D, []SpeciesFlags{
		{Name: "electrons"}, {Name: "protons"},
	})
	buf := New(reg, domain, singleTile(geom.Cartesian3D, domain), Options{Workers: 1})
	defer buf.Close()

	defer func() {
		if recover() == nil {
			t.Error("Gather must panic when live container count disagrees with the registry")
		}
	}()
	buf.Gather([]*particles.Container{newLive(geom.Cartesian3D)}, nil, 0, []float64{1e-9})
}

func TestCountLocalFiltersByRank(t *testing.T) {
	mode := geom.Cartesian2D
	domain := geom.Domain{Lo: [3]float64{0, 0, 0}, Hi: [3]float64{4, 2, 0}}
	decomp := geom.NewUniform(mode, domain, [3]int{2, 1, 1}, 1, 2)
	reg := NewRegistry(mode, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"zlo": true}},
	})
	buf := New(reg, domain, decomp, Options{LocalRank: 0, Workers: 1})
	defer buf.Close()

	live := newLive(mode)
	t0 := live.DefineAndReturnTile(0, 0)
	t0.Resize(1)
	t0.SetPosition(0, [3]float64{1, -0.1, 0})
	t1 := live.DefineAndReturnTile(0, 1)
	t1.Resize(2)
	t1.SetPosition(0, [3]float64{3, -0.1, 0})
	t1.SetPosition(1, [3]float64{3.5, -0.2, 0})

	buf.Gather([]*particles.Container{live}, nil, 0, []float64{1e-9})

	zlo := geom.BoundaryIndex(1, 0)
	if got := buf.Count("electrons", zlo, false); got != 3 {
		t.Fatalf("global Count = %d, want 3", got)
	}
	// Tiles go to ranks round-robin, so tile 0 is local to rank 0.
	if got := buf.Count("electrons", zlo, true); got != 1 {
		t.Fatalf("local Count = %d, want 1", got)
	}
}

func TestClearSemantics(t *testing.T) {
	domain := cubeDomain(1)
	reg := NewRegistry(geom.Cartesian3D, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"xlo": true, "zhi": true}},
	})
	buf := New(reg, domain, singleTile(geom.Cartesian3D, domain), Options{Workers: 1})
	defer buf.Close()

	live := newLive(geom.Cartesian3D)
	tile := live.DefineAndReturnTile(0, 0)
	tile.Resize(2)
	tile.SetPosition(0, [3]float64{-2, 0, 0})
	tile.SetPosition(1, [3]float64{0, 0, 2})

	buf.Gather([]*particles.Container{live}, nil, 5, []float64{1e-9})
	xlo := geom.BoundaryIndex(0, 0)
	zhi := geom.BoundaryIndex(2, 1)
	if buf.Count("electrons", xlo, false) != 1 || buf.Count("electrons", zhi, false) != 1 {
		t.Fatal("setup gather failed")
	}

	buf.Clear(xlo)
	if buf.Count("electrons", xlo, false) != 0 {
		t.Error("Clear left particles behind")
	}
	if !buf.IsDefined("electrons", xlo) {
		t.Error("Clear must preserve allocation status")
	}
	if buf.SpeciesBuffer("electrons", xlo).Schema().IntAttrIndex(StampAttr) < 0 {
		t.Error("Clear must preserve the attribute schema")
	}
	if buf.Count("electrons", zhi, false) != 1 {
		t.Error("Clear touched a different boundary")
	}

	// Idempotent.
	buf.Clear(xlo)
	if buf.Count("electrons", xlo, false) != 0 {
		t.Error("second Clear changed state")
	}

	// Capture keeps working after a clear.
	buf.Gather([]*particles.Container{live}, nil, 6, []float64{1e-9})
	if buf.Count("electrons", xlo, false) != 1 {
		t.Error("gather after clear captured nothing")
	}

	buf.ClearAll()
	if buf.Count("electrons", xlo, false) != 0 || buf.Count("electrons", zhi, false) != 0 {
		t.Error("ClearAll left particles behind")
	}
}

func TestSpeciesBufferPanics(t *testing.T) {
	domain := cubeDomain(1)
	reg := NewRegistry(geom.Cartesian3D, []SpeciesFlags{
		{Name: "electrons", Flags: map[string]bool{"xlo": true}},
	})
	buf := New(reg, domain, singleTile(geom.Cartesian3D, domain), Options{Workers: 1})
	defer buf.Close()

	t.Run("disabled pair", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("SpeciesBuffer must panic for a disabled pair")
			}
		}()
		buf.SpeciesBuffer("electrons", geom.BoundaryIndex(0, 1))
	})

	t.Run("never allocated", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("SpeciesBuffer must panic before the first gather")
			}
		}()
		buf.SpeciesBuffer("electrons", geom.BoundaryIndex(0, 0))
	})

	// SpeciesBufferPointer is the unchecked variant.
	if buf.SpeciesBufferPointer("electrons", geom.BoundaryIndex(0, 0)) != nil {
		t.Error("SpeciesBufferPointer should return nil before allocation")
	}
}
