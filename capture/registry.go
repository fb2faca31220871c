// Package capture implements the boundary-crossing particle capture
// engine: it detects particles that left the domain or crossed the
// embedded surface, copies them without touching live state, localizes
// the crossing point where required, and buffers the copies per
// (boundary, species) pair for later inspection.
package capture

import (
	"fmt"
	"log/slog"

	"skimmer/geom"
)

// SpeciesFlags is the per-species configuration input: capture flags
// keyed by boundary symbol ("xlo", "zhi", "eb", ...). Absent symbols
// default to disabled.
type SpeciesFlags struct {
	Name  string
	Flags map[string]bool
}

// Registry holds the static (boundary, species) activation table. It is
// built once from configuration and never mutated afterwards; the species
// name table is resolved here rather than cached lazily on first query.
type Registry struct {
	mode          geom.Mode
	boundaryNames []string
	speciesNames  []string
	speciesIndex  map[string]int
	enabled       [][]bool // [boundary][species]
	anyEnabled    []bool
}

// NewRegistry builds the activation table. Flag keys that match no
// boundary symbol of the current geometry mode are ignored with a warning;
// duplicate species names panic.
func NewRegistry(mode geom.Mode, species []SpeciesFlags) *Registry {
	r := &Registry{
		mode:          mode,
		boundaryNames: mode.BoundaryNames(),
		speciesIndex:  make(map[string]int, len(species)),
	}
	nb := mode.NumBoundaries()
	r.enabled = make([][]bool, nb)
	r.anyEnabled = make([]bool, nb)
	for b := range r.enabled {
		r.enabled[b] = make([]bool, len(species))
	}

	for s, sp := range species {
		if _, dup := r.speciesIndex[sp.Name]; dup {
			panic(fmt.Sprintf("capture: duplicate species %q", sp.Name))
		}
		r.speciesNames = append(r.speciesNames, sp.Name)
		r.speciesIndex[sp.Name] = s
		for key, on := range sp.Flags {
			b := r.boundaryIndexByName(key)
			if b < 0 {
				slog.Warn("capture: ignoring unknown boundary symbol",
					"species", sp.Name, "symbol", key, "mode", mode.String())
				continue
			}
			r.enabled[b][s] = on
			if on {
				r.anyEnabled[b] = true
			}
		}
	}
	return r
}

func (r *Registry) boundaryIndexByName(name string) int {
	for i, n := range r.boundaryNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Mode returns the geometry mode the registry was built for.
func (r *Registry) Mode() geom.Mode { return r.mode }

// NumBoundaries returns the number of boundary slots (domain sides plus
// the embedded surface).
func (r *Registry) NumBoundaries() int { return len(r.boundaryNames) }

// NumSpecies returns the number of registered species.
func (r *Registry) NumSpecies() int { return len(r.speciesNames) }

// BoundaryName returns the fixed symbol of a boundary slot.
func (r *Registry) BoundaryName(boundary int) string { return r.boundaryNames[boundary] }

// SpeciesName returns the name of a species index.
func (r *Registry) SpeciesName(species int) string { return r.speciesNames[species] }

// SpeciesIndex resolves a species name.
func (r *Registry) SpeciesIndex(name string) (int, bool) {
	i, ok := r.speciesIndex[name]
	return i, ok
}

// MustSpeciesIndex resolves a species name or panics; unknown names are a
// config/programming error, not a runtime condition.
func (r *Registry) MustSpeciesIndex(name string) int {
	i, ok := r.speciesIndex[name]
	if !ok {
		panic(fmt.Sprintf("capture: unknown species %q", name))
	}
	return i
}

// IsEnabled reports whether capture is active for a (boundary, species)
// pair.
func (r *Registry) IsEnabled(boundary, species int) bool {
	return r.enabled[boundary][species]
}

// AnyEnabled reports whether any species captures at the given boundary,
// so all-disabled boundaries can be skipped outright.
func (r *Registry) AnyEnabled(boundary int) bool {
	return r.anyEnabled[boundary]
}
