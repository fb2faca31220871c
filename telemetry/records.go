package telemetry

import (
	"skimmer/capture"
	"skimmer/geom"
)

// CapturedRecord is the flat CSV projection of one captured particle.
type CapturedRecord struct {
	Species  string  `csv:"species"`
	Boundary string  `csv:"boundary"`
	Level    int     `csv:"level"`
	Tile     int     `csv:"tile"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Z        float64 `csv:"z"`
	Theta    float64 `csv:"theta"`
	UX       float64 `csv:"ux"`
	UY       float64 `csv:"uy"`
	UZ       float64 `csv:"uz"`
	Weight   float64 `csv:"weight"`
	ID       int64   `csv:"id"`
	Step     int64   `csv:"capture_step"`
}

// RecordsFromBuffer flattens every allocated capture buffer into CSV
// rows. Read-only; ordering follows (boundary, species, level, tile).
func RecordsFromBuffer(b *capture.Buffer) []*CapturedRecord {
	reg := b.Registry()
	mode := reg.Mode()
	var out []*CapturedRecord

	for boundary := 0; boundary < reg.NumBoundaries(); boundary++ {
		for s := 0; s < reg.NumSpecies(); s++ {
			name := reg.SpeciesName(s)
			c := b.SpeciesBufferPointer(name, boundary)
			if c == nil {
				continue
			}
			stamp := c.Schema().IntAttrIndex(capture.StampAttr)
			for lev := 0; lev < c.NumLevels(); lev++ {
				for _, idx := range c.TileIndices(lev) {
					t, _ := c.Tile(lev, idx)
					for i := 0; i < t.NumParticles(); i++ {
						r := &CapturedRecord{
							Species:  name,
							Boundary: reg.BoundaryName(boundary),
							Level:    lev,
							Tile:     idx,
							UX:       t.Mom[0][i],
							UY:       t.Mom[1][i],
							UZ:       t.Mom[2][i],
							Weight:   t.Weight[i],
							ID:       t.ID[i],
						}
						if stamp >= 0 {
							r.Step = t.Int[stamp][i]
						}
						p := t.Position(i)
						switch mode {
						case geom.Cartesian3D:
							r.X, r.Y, r.Z = p[0], p[1], p[2]
						case geom.RZ:
							r.X, r.Z = p[0], p[1] // r stored in the x column
							r.Theta = t.Theta[i]
						default:
							r.X, r.Z = p[0], p[1]
						}
						out = append(out, r)
					}
				}
			}
		}
	}
	return out
}
