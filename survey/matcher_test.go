package survey

import (
	"errors"
	"reflect"
	"testing"
)

// testCloud generates a deterministic cloud of n distinct landmarks with
// coordinates in [-1000, 1000]. Different seeds give unrelated clouds.
func testCloud(n int, seed int64) []Landmark {
	state := uint64(seed)*2862933555777941757 + 3037000493
	next := func() int64 {
		state = state*6364136223846793005 + 1442695040888963407
		return int64(state>>33)%2001 - 1000
	}

	seen := make(map[Landmark]bool, n)
	cloud := make([]Landmark, 0, n)
	for len(cloud) < n {
		l := Landmark{X: next(), Y: next(), Z: next()}
		if seen[l] {
			continue
		}
		seen[l] = true
		cloud = append(cloud, l)
	}
	return cloud
}

// transformedCloud views the cloud from a frame where global = oriented(local)
// + offset, i.e. it returns what a sensor at that pose would report.
func transformedCloud(global []Landmark, rot int, offset Landmark) []Landmark {
	out := make([]Landmark, len(global))
	for i, l := range global {
		out[i] = l.Oriented(rot).Add(offset)
	}
	return out
}

func TestMatchSensors_RoundTrip(t *testing.T) {
	local := testCloud(14, 1)
	offset := Landmark{68, -1246, 43}

	for rot := 0; rot < NumOrientations; rot++ {
		ref := NewSensorReading(0, transformedCloud(local, rot, offset))
		pending := NewSensorReading(1, local)

		m, err := MatchSensors(ref, pending, DefaultThreshold)
		if err != nil {
			t.Fatalf("rot %d: MatchSensors() error = %v", rot, err)
		}
		if m == nil {
			t.Fatalf("rot %d: MatchSensors() found no match", rot)
		}
		if m.Orientation != rot {
			t.Errorf("rot %d: recovered orientation %d", rot, m.Orientation)
		}
		if m.Offset != offset {
			t.Errorf("rot %d: recovered offset %v, want %v", rot, m.Offset, offset)
		}
		if len(m.Pairs) < DefaultThreshold {
			t.Errorf("rot %d: %d correspondences, want >= %d", rot, len(m.Pairs), DefaultThreshold)
		}
	}
}

func TestMatchSensors_AppliedMatchReproducesReference(t *testing.T) {
	local := testCloud(15, 7)
	offset := Landmark{-1234, 555, -9}
	rot := 13

	ref := NewSensorReading(0, transformedCloud(local, rot, offset))
	pending := NewSensorReading(1, local)

	m, err := MatchSensors(ref, pending, DefaultThreshold)
	if err != nil || m == nil {
		t.Fatalf("MatchSensors() = %v, %v", m, err)
	}

	pending.place(m.Orientation, m.Offset)
	want := make(map[Landmark]bool, len(ref.Landmarks))
	for _, l := range ref.Landmarks {
		want[l] = true
	}
	for _, l := range pending.Landmarks {
		if !want[l] {
			t.Errorf("placed landmark %v not in reference cloud", l)
		}
	}
}

func TestMatchSensors_DisjointClouds(t *testing.T) {
	ref := NewSensorReading(0, testCloud(20, 2))
	pending := NewSensorReading(1, testCloud(20, 3))

	m, err := MatchSensors(ref, pending, DefaultThreshold)
	if err != nil {
		t.Fatalf("MatchSensors() error = %v", err)
	}
	if m != nil {
		t.Errorf("disjoint clouds matched: %+v", m)
	}
}

func TestMatchSensors_BelowThresholdOverlap(t *testing.T) {
	// Eleven co-observed landmarks with threshold 12: one short of the
	// guarantee, so no transform may be proposed.
	shared := testCloud(11, 4)
	refOnly := testCloud(5, 5)
	pendingOnly := testCloud(5, 6)

	ref := NewSensorReading(0, append(append([]Landmark{}, shared...), refOnly...))
	pending := NewSensorReading(1, append(append([]Landmark{}, shared...), pendingOnly...))

	m, err := MatchSensors(ref, pending, DefaultThreshold)
	if err != nil {
		t.Fatalf("MatchSensors() error = %v", err)
	}
	if m != nil {
		t.Errorf("overlap of 11 produced a match at threshold 12: %+v", m)
	}
}

func TestMatchSensors_AmbiguousOrientation(t *testing.T) {
	// Collinear landmarks along the X axis are invariant under rotation about
	// it, so more than one orientation fits. This must be a hard error.
	// Power-of-two spacing keeps every pairwise distance unique, so the
	// correspondences themselves are unambiguous.
	var line []Landmark
	for i := 0; i < 13; i++ {
		line = append(line, Landmark{X: (int64(1) << i) - 1})
	}

	ref := NewSensorReading(0, append([]Landmark{}, line...))
	pending := NewSensorReading(1, append([]Landmark{}, line...))

	_, err := MatchSensors(ref, pending, DefaultThreshold)
	if !errors.Is(err, ErrAmbiguousOrientation) {
		t.Errorf("MatchSensors() error = %v, want ErrAmbiguousOrientation", err)
	}
}

func TestCorrespondences_SequentialFindsOverlap(t *testing.T) {
	local := testCloud(14, 8)
	ref := NewSensorReading(0, transformedCloud(local, 5, Landmark{10, 20, 30}))
	pending := NewSensorReading(1, local)

	pairs := Correspondences(ref, pending, DefaultThreshold)
	if len(pairs) < DefaultThreshold {
		t.Fatalf("Correspondences() = %d pairs, want >= %d", len(pairs), DefaultThreshold)
	}
	for _, c := range pairs {
		if c.Ref != c.Pending {
			t.Errorf("identical ordering should pair index with itself, got %+v", c)
		}
	}
}

func TestCorrespondences_SequentialPrunesDisjoint(t *testing.T) {
	ref := NewSensorReading(0, testCloud(20, 9))
	pending := NewSensorReading(1, testCloud(20, 10))

	if pairs := Correspondences(ref, pending, DefaultThreshold); pairs != nil {
		t.Errorf("Correspondences() on disjoint clouds = %v, want nil", pairs)
	}
}

func TestCorrespondencesParallel_Deterministic(t *testing.T) {
	local := testCloud(18, 11)
	ref := NewSensorReading(0, transformedCloud(local, 17, Landmark{-5, 5, -5}))
	pending := NewSensorReading(1, local)

	first := CorrespondencesParallel(ref, pending, DefaultThreshold)
	if first == nil {
		t.Fatal("CorrespondencesParallel() found no overlap")
	}
	for i := 0; i < 10; i++ {
		again := CorrespondencesParallel(ref, pending, DefaultThreshold)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, again, first)
		}
	}
}

func TestMatchSensors_DoesNotMutateReadings(t *testing.T) {
	local := testCloud(14, 12)
	refCloud := transformedCloud(local, 3, Landmark{1, 2, 3})

	ref := NewSensorReading(0, append([]Landmark{}, refCloud...))
	pending := NewSensorReading(1, append([]Landmark{}, local...))

	if _, err := MatchSensors(ref, pending, DefaultThreshold); err != nil {
		t.Fatalf("MatchSensors() error = %v", err)
	}

	for i := range local {
		if pending.Landmarks[i] != local[i] {
			t.Fatalf("pending landmark %d mutated", i)
		}
		if ref.Landmarks[i] != refCloud[i] {
			t.Fatalf("ref landmark %d mutated", i)
		}
	}
}

func BenchmarkMatchSensors(b *testing.B) {
	local := testCloud(26, 13)
	ref := NewSensorReading(0, transformedCloud(local, 9, Landmark{100, -200, 300}))
	pending := NewSensorReading(1, local)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := MatchSensors(ref, pending, DefaultThreshold); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCorrespondences(b *testing.B) {
	local := testCloud(26, 13)
	ref := NewSensorReading(0, transformedCloud(local, 9, Landmark{100, -200, 300}))
	pending := NewSensorReading(1, local)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Correspondences(ref, pending, DefaultThreshold)
	}
}

func BenchmarkCorrespondencesParallel(b *testing.B) {
	local := testCloud(26, 13)
	ref := NewSensorReading(0, transformedCloud(local, 9, Landmark{100, -200, 300}))
	pending := NewSensorReading(1, local)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CorrespondencesParallel(ref, pending, DefaultThreshold)
	}
}
