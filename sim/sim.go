package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"skimmer/capture"
	"skimmer/config"
	"skimmer/fields"
	"skimmer/geom"
	"skimmer/particles"
	"skimmer/telemetry"
)

// Options configures a simulation run.
type Options struct {
	Seed      int64
	OutputDir string
	LogStats  bool
}

// Sim owns the live particle world and drives the capture engine once
// per step.
type Sim struct {
	cfg  *config.Config
	opts Options

	world  *ecs.World
	mapper *ecs.Map3[Position, Momentum, Meta]
	filter *ecs.Filter3[Position, Momentum, Meta]
	rng    *rand.Rand

	decomp  *geom.Decomposition
	buffer  *capture.Buffer
	phi     []*fields.NodalField
	schemas []particles.Schema

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	output    *telemetry.OutputManager

	// prevCounts tracks cumulative buffer counts so per-step metric
	// deltas can be derived from Count queries.
	prevCounts map[[2]int]int

	step   int
	nextID int64
}

// New builds a simulation from the global config.
func New(opts Options) (*Sim, error) {
	cfg := config.Cfg()
	mode := cfg.Derived.Mode
	domain := cfg.Derived.Domain

	decomp := geom.NewUniform(mode, domain, cfg.Tiling.TilesPerAxis, cfg.Tiling.Levels, cfg.Tiling.Ranks)

	flags := make([]capture.SpeciesFlags, len(cfg.Species))
	for i, sp := range cfg.Species {
		flags[i] = capture.SpeciesFlags{Name: sp.Name, Flags: sp.Capture}
	}
	reg := capture.NewRegistry(mode, flags)

	phi := buildLevelSet(cfg, cfg.Tiling.Levels)
	eb := mode.EmbeddedBoundary()
	if reg.AnyEnabled(eb) && phi == nil {
		return nil, fmt.Errorf("sim: species capture at the embedded surface but embedded_boundary is disabled")
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	world := ecs.NewWorld()
	s := &Sim{
		cfg:    cfg,
		opts:   opts,
		world:  world,
		mapper: ecs.NewMap3[Position, Momentum, Meta](world),
		filter: ecs.NewFilter3[Position, Momentum, Meta](world),
		rng:    rand.New(rand.NewSource(opts.Seed)),
		decomp: decomp,
		buffer: capture.New(reg, domain, decomp, capture.Options{
			LocalRank: cfg.Tiling.LocalRank,
			Workers:   cfg.Tiling.Workers,
		}),
		phi:        phi,
		perf:       telemetry.NewPerfCollector(cfg.Telemetry.StatsWindow),
		collector:  telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		output:     output,
		prevCounts: make(map[[2]int]int),
		nextID:     1,
	}

	for i, sp := range cfg.Species {
		s.schemas = append(s.schemas, particles.Schema{
			Name:      sp.Name,
			Mode:      mode,
			RealAttrs: append([]string(nil), sp.RealAttrs...),
		})
		s.seedSpecies(i, sp)
	}
	return s, nil
}

// Buffer exposes the capture subsystem for queries and final reports.
func (s *Sim) Buffer() *capture.Buffer { return s.buffer }

// StepIndex returns the current step index.
func (s *Sim) StepIndex() int { return s.step }

// seedSpecies spawns the initial particles of one species: stored
// coordinates uniform over the domain, momenta Gaussian, positions
// rejected while on the forbidden side of the embedded surface.
func (s *Sim) seedSpecies(species int, sp config.SpeciesConfig) {
	mode := s.cfg.Derived.Mode
	d := s.cfg.Derived.Domain
	dim := mode.Dim()

	for n := 0; n < sp.Initial; n++ {
		var stored [3]float64
		for try := 0; ; try++ {
			for a := 0; a < dim; a++ {
				stored[a] = d.Lo[a] + s.rng.Float64()*(d.Hi[a]-d.Lo[a])
			}
			if s.phi == nil || s.phi[0].Interp(stored) > 0 || try >= 100 {
				break
			}
		}

		var pos Position
		switch mode {
		case geom.Cartesian3D:
			pos = Position{X: stored[0], Y: stored[1], Z: stored[2]}
		case geom.RZ:
			th := s.rng.Float64() * 2 * math.Pi
			pos = Position{X: stored[0] * math.Cos(th), Y: stored[0] * math.Sin(th), Z: stored[1]}
		default:
			pos = Position{X: stored[0], Z: stored[1]}
		}
		mom := Momentum{
			X: s.rng.NormFloat64() * sp.MomentumStd,
			Y: s.rng.NormFloat64() * sp.MomentumStd,
			Z: s.rng.NormFloat64() * sp.MomentumStd,
		}
		if mode == geom.Cartesian2D {
			mom.Y = 0
		}
		meta := Meta{Species: species, Weight: sp.Weight, ID: s.nextID}
		s.nextID++
		s.mapper.NewEntity(&pos, &mom, &meta)
	}
}

// storedPos converts Cartesian coordinates into stored ones, returning
// theta for RZ mode.
func storedPos(mode geom.Mode, x, y, z float64) ([3]float64, float64) {
	switch mode {
	case geom.Cartesian3D:
		return [3]float64{x, y, z}, 0
	case geom.RZ:
		r, th := geom.ToRZ(x, y)
		return [3]float64{r, z, 0}, th
	default:
		return [3]float64{x, z, 0}, 0
	}
}

// Step advances the world by one step and runs a capture gather over the
// freshly pushed state.
func (s *Sim) Step() {
	cfg := s.cfg
	dt := cfg.Step.DT
	s.perf.StartStep()

	// Push: advance live positions ballistically.
	s.perf.StartPhase(telemetry.PhasePush)
	query := s.filter.Query()
	for query.Next() {
		pos, mom, _ := query.Get()
		pos.X, pos.Y, pos.Z = geom.PushPosition(pos.X, pos.Y, pos.Z, mom.X, mom.Y, mom.Z, dt)
		s.applyPeriodic(pos)
	}

	// Snapshot: bin the post-push state into tiled containers.
	s.perf.StartPhase(telemetry.PhaseSnapshot)
	live := s.snapshot()

	// Gather: non-destructive capture of crossing particles.
	s.perf.StartPhase(telemetry.PhaseGather)
	start := time.Now()
	captured := s.buffer.Gather(live, s.phi, s.step, []float64{dt})
	telemetry.ObserveGather(time.Since(start).Seconds())
	s.updateCaptureMetrics()

	// Cleanup: particles that left the domain or entered the surface are
	// absorbed by the (external) boundary handling; the capture buffers
	// already hold their copies.
	s.perf.StartPhase(telemetry.PhaseCleanup)
	s.removeAbsorbed()

	if every := cfg.Step.RedistributeEvery; every > 0 && s.step > 0 && s.step%every == 0 {
		s.perf.StartPhase(telemetry.PhaseRedistribute)
		s.buffer.Redistribute()
	}

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	if stats, ok := s.collector.RecordStep(s.step, captured); ok {
		if s.opts.LogStats {
			stats.LogStats()
			s.perf.Stats().LogStats()
		}
		if err := s.output.WriteWindow(stats); err != nil {
			slog.Error("telemetry write failed", "error", err)
		}
		if err := s.output.WritePerf(s.perf.Stats(), s.step); err != nil {
			slog.Error("perf write failed", "error", err)
		}
	}

	s.perf.EndStep()
	s.step++
}

// applyPeriodic wraps the Cartesian components mapped to periodic stored
// axes back into the domain, so a periodic exit re-enters on the opposite
// side instead of being absorbed. The radial axis of RZ mode cannot wrap
// and is left alone.
func (s *Sim) applyPeriodic(pos *Position) {
	d := s.cfg.Derived.Domain
	switch s.cfg.Derived.Mode {
	case geom.Cartesian3D:
		if d.Periodic[0] {
			pos.X = wrapPeriodic(pos.X, d.Lo[0], d.Hi[0])
		}
		if d.Periodic[1] {
			pos.Y = wrapPeriodic(pos.Y, d.Lo[1], d.Hi[1])
		}
		if d.Periodic[2] {
			pos.Z = wrapPeriodic(pos.Z, d.Lo[2], d.Hi[2])
		}
	case geom.RZ:
		if d.Periodic[1] {
			pos.Z = wrapPeriodic(pos.Z, d.Lo[1], d.Hi[1])
		}
	default:
		if d.Periodic[0] {
			pos.X = wrapPeriodic(pos.X, d.Lo[0], d.Hi[0])
		}
		if d.Periodic[1] {
			pos.Z = wrapPeriodic(pos.Z, d.Lo[1], d.Hi[1])
		}
	}
}

// wrapPeriodic folds a coordinate into [lo, hi).
func wrapPeriodic(v, lo, hi float64) float64 {
	span := hi - lo
	v = math.Mod(v-lo, span)
	if v < 0 {
		v += span
	}
	w := lo + v
	if w >= hi { // rounding at the seam
		w = lo
	}
	return w
}

// snapshot builds per-species tiled containers from the ECS world,
// binning each particle into the decomposition tile owning its stored
// position (clamped, so just-exited particles land in the edge tile that
// will scan them).
func (s *Sim) snapshot() []*particles.Container {
	mode := s.cfg.Derived.Mode
	live := make([]*particles.Container, len(s.schemas))
	for i := range s.schemas {
		live[i] = particles.NewContainer(s.schemas[i], s.cfg.Tiling.Levels)
	}

	query := s.filter.Query()
	for query.Next() {
		pos, mom, meta := query.Get()
		stored, theta := storedPos(mode, pos.X, pos.Y, pos.Z)
		tile := s.ownerClamped(stored)

		t := live[meta.Species].DefineAndReturnTile(0, tile)
		n := t.NumParticles()
		t.Resize(n + 1)
		t.SetPosition(n, stored)
		if mode.Axisymmetric() {
			t.Theta[n] = theta
		}
		t.Mom[0][n] = mom.X
		t.Mom[1][n] = mom.Y
		t.Mom[2][n] = mom.Z
		t.Weight[n] = meta.Weight
		t.ID[n] = meta.ID
	}
	return live
}

// ownerClamped maps a stored position to its owning tile, clamping
// coordinates just inside the domain first.
func (s *Sim) ownerClamped(stored [3]float64) int {
	d := s.cfg.Derived.Domain
	dim := s.cfg.Derived.Mode.Dim()
	p := stored
	for a := 0; a < dim; a++ {
		span := d.Hi[a] - d.Lo[a]
		if p[a] < d.Lo[a] {
			p[a] = d.Lo[a]
		}
		if p[a] >= d.Hi[a] {
			p[a] = d.Hi[a] - 1e-12*span
		}
	}
	tile, ok := s.decomp.Owner(0, p)
	if !ok {
		// Clamping guarantees containment; reaching this means the
		// decomposition and domain disagree.
		panic(fmt.Sprintf("sim: no owning tile for clamped position %v", p))
	}
	return tile
}

// removeAbsorbed deletes entities that are outside the domain or on the
// forbidden side of the embedded surface.
func (s *Sim) removeAbsorbed() {
	mode := s.cfg.Derived.Mode
	d := s.cfg.Derived.Domain
	dim := mode.Dim()

	var gone []ecs.Entity
	query := s.filter.Query()
	for query.Next() {
		pos, _, _ := query.Get()
		stored, _ := storedPos(mode, pos.X, pos.Y, pos.Z)
		if !d.Contains(dim, stored) {
			gone = append(gone, query.Entity())
			continue
		}
		if s.phi != nil && s.phi[0].Interp(stored) < 0 {
			gone = append(gone, query.Entity())
		}
	}
	for _, e := range gone {
		s.mapper.Remove(e)
	}
}

// updateCaptureMetrics refreshes the Prometheus counters and gauges from
// buffer count queries.
func (s *Sim) updateCaptureMetrics() {
	reg := s.buffer.Registry()
	for b := 0; b < reg.NumBoundaries(); b++ {
		for sp := 0; sp < reg.NumSpecies(); sp++ {
			if !reg.IsEnabled(b, sp) {
				continue
			}
			name := reg.SpeciesName(sp)
			n := s.buffer.Count(name, b, false)
			key := [2]int{b, sp}
			telemetry.ObserveCapture(name, reg.BoundaryName(b), n-s.prevCounts[key], n)
			s.prevCounts[key] = n
		}
	}
}

// LiveCount returns the number of live particles across all species.
func (s *Sim) LiveCount() int {
	n := 0
	query := s.filter.Query()
	for query.Next() {
		n++
	}
	return n
}

// Run executes maxSteps steps.
func (s *Sim) Run(maxSteps int) {
	logEvery := s.cfg.Telemetry.LogEvery
	for i := 0; i < maxSteps; i++ {
		s.Step()
		if logEvery > 0 && s.step%logEvery == 0 {
			slog.Info("step", "n", s.step, "live", s.LiveCount())
		}
	}
}

// Finish flushes pending telemetry and dumps the captured records.
func (s *Sim) Finish() {
	if stats, ok := s.collector.Flush(s.step); ok {
		if err := s.output.WriteWindow(stats); err != nil {
			slog.Error("telemetry write failed", "error", err)
		}
	}
	if err := s.output.DumpRecords(s.buffer); err != nil {
		slog.Error("record dump failed", "error", err)
	}
}

// Close releases resources.
func (s *Sim) Close() {
	s.buffer.Close()
	if err := s.output.Close(); err != nil {
		slog.Error("closing output", "error", err)
	}
}
