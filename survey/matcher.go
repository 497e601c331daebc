package survey

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// DefaultThreshold is the number of shared landmarks two sensors must observe
// before a rigid transform between them is accepted. Twelve is the canonical
// guarantee of the data model; lower values trade safety for speed on
// particular datasets and raise the odds of an ambiguous orientation.
const DefaultThreshold = 12

// ErrAmbiguousOrientation is returned when more than one entry of the
// orientation table satisfies a correspondence set. A true rigid transform
// admits exactly one orientation, so ambiguity indicates corrupt input or a
// threshold set too low. It is a hard failure, never resolved by picking one.
var ErrAmbiguousOrientation = errors.New("ambiguous orientation: multiple rotations satisfy correspondences")

// Correspondence pairs a landmark index in the reference sensor with a
// landmark index in the pending sensor hypothesized to be the same physical
// beacon.
type Correspondence struct {
	Ref     int
	Pending int
}

// Match is a recovered rigid transform placing a pending sensor into the
// reference sensor's frame: orient every pending landmark by Orientation,
// then translate by Offset.
type Match struct {
	Orientation int
	Offset      Landmark
	Pairs       []Correspondence
}

// MatchSensors proposes landmark correspondences between a placed reference
// sensor and a pending sensor via their distance fingerprints, then recovers
// the orientation and integer offset relating the two frames.
//
// It returns (nil, nil) when the sensors do not overlap by at least threshold
// landmarks — an expected, non-erroneous outcome; the pair may still connect
// transitively through other sensors. ErrAmbiguousOrientation is the only
// error condition. The call is pure: neither reading is mutated.
func MatchSensors(ref, pending *SensorReading, threshold int) (*Match, error) {
	pairs := CorrespondencesParallel(ref, pending, threshold)
	if pairs == nil {
		return nil, nil
	}
	return recoverTransform(ref, pending, pairs, threshold)
}

// Correspondences performs the sequential correspondence search with early
// pruning: as soon as the confirmed pairs plus the remaining unexamined
// reference landmarks can no longer reach threshold, it aborts. This bounds
// worst-case work when two sensors clearly do not overlap. Returns nil when
// threshold cannot be met.
func Correspondences(ref, pending *SensorReading, threshold int) []Correspondence {
	var pairs []Correspondence
	seen := make(map[int]bool)

	for idx, dists := range ref.fingerprint {
		if found := pending.findByDistances(dists, threshold-1); found >= 0 && !seen[found] {
			pairs = append(pairs, Correspondence{Ref: idx, Pending: found})
			seen[found] = true
		}

		if len(pairs) >= threshold {
			return pairs
		}
		if len(pairs)+(len(ref.fingerprint)-idx-1) < threshold {
			return nil
		}
	}
	return nil
}

// CorrespondencesParallel fans the per-landmark fingerprint lookups out to
// worker goroutines. Each lookup reads only the two immutable fingerprints,
// so the workers share no mutable state; results are fanned back in over a
// channel and sorted for determinism. Returns nil when fewer than threshold
// correspondences are found.
func CorrespondencesParallel(ref, pending *SensorReading, threshold int) []Correspondence {
	n := len(ref.fingerprint)
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, n)
	results := make(chan Correspondence, n)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if found := pending.findByDistances(ref.fingerprint[idx], threshold-1); found >= 0 {
					results <- Correspondence{Ref: idx, Pending: found}
				}
			}
		}()
	}

	for idx := 0; idx < n; idx++ {
		jobs <- idx
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var pairs []Correspondence
	for c := range results {
		pairs = append(pairs, c)
	}

	// Channel arrival order depends on scheduling; sort by reference index so
	// repeated runs recover identical transforms.
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Ref < pairs[j].Ref })

	// Two reference landmarks must not claim the same pending landmark; keep
	// the first claim.
	seen := make(map[int]bool, len(pairs))
	deduped := pairs[:0]
	for _, c := range pairs {
		if seen[c.Pending] {
			continue
		}
		seen[c.Pending] = true
		deduped = append(deduped, c)
	}

	if len(deduped) < threshold {
		return nil
	}
	return deduped
}

// recoverTransform tries every orientation in the table against the first
// threshold correspondences. An orientation is consistent when
// ref - oriented(pending) yields the identical integer offset for every pair.
// Exactly one consistent orientation is the only acceptable outcome: zero
// means the correspondences were spurious (no match), more than one is
// ErrAmbiguousOrientation.
func recoverTransform(ref, pending *SensorReading, pairs []Correspondence, threshold int) (*Match, error) {
	check := pairs
	if len(check) > threshold {
		check = check[:threshold]
	}

	var found *Match
	for rot := 0; rot < NumOrientations; rot++ {
		offset, ok := consistentOffset(ref, pending, check, rot)
		if !ok {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: orientations %d and %d both fit sensors %d/%d",
				ErrAmbiguousOrientation, found.Orientation, rot, ref.ID, pending.ID)
		}
		found = &Match{Orientation: rot, Offset: offset, Pairs: pairs}
	}

	if found == nil {
		return nil, nil
	}
	return found, nil
}

// consistentOffset computes ref - oriented(pending) for each correspondence
// under the given orientation and reports the shared offset if all pairs
// agree exactly.
func consistentOffset(ref, pending *SensorReading, pairs []Correspondence, rot int) (Landmark, bool) {
	var offset Landmark
	for i, c := range pairs {
		delta := ref.Landmarks[c.Ref].Sub(pending.Landmarks[c.Pending].Oriented(rot))
		if i == 0 {
			offset = delta
			continue
		}
		if delta != offset {
			return Landmark{}, false
		}
	}
	return offset, true
}
