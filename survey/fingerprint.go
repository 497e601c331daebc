package survey

// distanceSet is the multiset of squared distances from one landmark to every
// other landmark observed by the same sensor, keyed by distance with the
// number of occurrences as value. Distances can legitimately recur (two
// neighbours at the same range), so multiplicity must be counted rather than
// collapsed into a plain set.
//
// Because only rigid transforms are in play, these distances are invariant
// under any rotation and translation, which makes the multiset a frame-free
// signature for proposing landmark correspondences between sensors.
type distanceSet map[int64]int

// buildFingerprint computes the per-landmark distance multisets for a
// sensor's landmark list. O(n^2) unordered pair generation; deterministic for
// a fixed input ordering.
func buildFingerprint(landmarks []Landmark) []distanceSet {
	fp := make([]distanceSet, len(landmarks))
	for i := range fp {
		fp[i] = make(distanceSet)
	}

	for i := 0; i < len(landmarks); i++ {
		for j := i + 1; j < len(landmarks); j++ {
			d := landmarks[i].DistSquared(landmarks[j])
			fp[i][d]++
			fp[j][d]++
		}
	}
	return fp
}

// sharedDistances returns the cardinality of the multiset intersection of a
// and b: for each distance present in both, the smaller occurrence count
// contributes.
func sharedDistances(a, b distanceSet) int {
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}
	shared := 0
	for d, ca := range a {
		if cb, ok := b[d]; ok {
			if ca < cb {
				shared += ca
			} else {
				shared += cb
			}
		}
	}
	return shared
}

// findByDistances scans the reading's fingerprint for a landmark whose
// distance multiset shares at least minShared values with the given multiset,
// returning its index or -1. Sharing threshold-1 distances is the necessary
// condition for threshold landmarks to mutually co-occur in both sensors.
func (s *SensorReading) findByDistances(dists distanceSet, minShared int) int {
	for idx, candidate := range s.fingerprint {
		if sharedDistances(dists, candidate) >= minShared {
			return idx
		}
	}
	return -1
}
