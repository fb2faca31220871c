// Package sim is the demo collaborator around the capture engine: a
// minimal stepped simulation holding live particles as ECS entities,
// pushing them ballistically, snapshotting them into tiled containers,
// and invoking gather/redistribute at the configured cadence.
package sim

// Position is an entity's Cartesian position. Y stays zero in 2D mode;
// RZ particles are kept Cartesian here and converted at snapshot time.
type Position struct {
	X, Y, Z float64
}

// Momentum is the relativistic momentum per unit mass, gamma*v.
type Momentum struct {
	X, Y, Z float64
}

// Meta carries the remaining per-particle record fields.
type Meta struct {
	Species int
	Weight  float64
	ID      int64
}
