package survey

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnsolvableOverlap is returned when a full pass over every unattempted
// (placed, pending) sensor pair produces no new placement while sensors
// remain pending. The overlap graph is disconnected relative to the
// threshold, so retrying can never help.
var ErrUnsolvableOverlap = errors.New("unsolvable overlap: remaining sensors share too few landmarks with the placed set")

// CorrelatorConfig holds the tunables for frame correlation.
type CorrelatorConfig struct {
	// Threshold is the overlap threshold passed to the matcher.
	// DefaultThreshold is used when zero.
	Threshold int

	// Reference is the id of the anchor sensor placed at identity. When
	// negative, the lowest sensor id is chosen.
	Reference int
}

// DefaultCorrelatorConfig returns the canonical configuration: threshold 12,
// lowest-id sensor as the anchor.
func DefaultCorrelatorConfig() CorrelatorConfig {
	return CorrelatorConfig{Threshold: DefaultThreshold, Reference: -1}
}

// pairKey identifies an unordered sensor pair in the attempted-pair memo.
type pairKey struct {
	lo, hi int
}

func makePairKey(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Correlate places every sensor into the anchor sensor's frame and merges all
// observations into one deduplicated global map.
//
// It runs a fixed-point iteration: each pass scans every not-yet-attempted
// (placed, pending) pair and invokes the matcher. A successful match orients
// and translates the pending sensor, merges its landmarks, and unlocks
// further pairs for the next pass. Failed pairs are memoized permanently —
// the matcher is a pure function of the two fixed readings, so a failed
// attempt cannot later succeed. A pass with zero placements while sensors
// remain pending ends the run with ErrUnsolvableOverlap; ambiguous
// orientations from the matcher abort immediately.
//
// The memo and all placement state are owned by this single call; readings
// are mutated in place as they are transformed into the global frame.
func Correlate(readings []*SensorReading, cfg CorrelatorConfig) (*GlobalMap, error) {
	global := NewGlobalMap()
	if len(readings) == 0 {
		return global, nil
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	byID := make(map[int]*SensorReading, len(readings))
	ids := make([]int, 0, len(readings))
	for _, r := range readings {
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate sensor id %d", r.ID)
		}
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}
	sort.Ints(ids)

	reference := cfg.Reference
	if reference < 0 {
		reference = ids[0]
	}
	anchor, ok := byID[reference]
	if !ok {
		return nil, fmt.Errorf("reference sensor %d not present in readings", reference)
	}

	// The anchor defines the global frame: identity orientation, zero offset.
	anchor.place(0, Landmark{})
	global.merge(anchor)

	pending := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id != reference {
			pending[id] = true
		}
	}

	attempted := make(map[pairKey]bool)

	for len(pending) > 0 {
		progress := false

		// Snapshot both sides so a mid-pass placement cannot reorder the
		// scan; a sensor placed this pass becomes a reference next pass.
		placedIDs := sortedKeys(global.origins)
		pendingIDs := sortedKeysBool(pending)

		for _, r := range placedIDs {
			for _, p := range pendingIDs {
				if !pending[p] {
					continue // placed earlier in this pass
				}
				key := makePairKey(r, p)
				if attempted[key] {
					continue
				}

				m, err := MatchSensors(byID[r], byID[p], threshold)
				if err != nil {
					return nil, err
				}
				if m == nil {
					attempted[key] = true
					continue
				}

				byID[p].place(m.Orientation, m.Offset)
				global.merge(byID[p])
				delete(pending, p)
				progress = true
			}
		}

		if !progress {
			return nil, fmt.Errorf("%w: sensors %v unplaced after exhausting all pairs",
				ErrUnsolvableOverlap, sortedKeysBool(pending))
		}
	}

	return global, nil
}

func sortedKeys(m map[int]Landmark) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func sortedKeysBool(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
