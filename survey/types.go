package survey

import (
	"fmt"
	"sort"
)

// Landmark is a fixed physical feature observed by a sensor, expressed as a
// 3D integer coordinate. It is a value type: equality and map-key hashing are
// by exact coordinate value.
type Landmark struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
	Z int64 `json:"z"`
}

// DistSquared returns the squared Euclidean distance to other. Squared
// distances stay exact integers, which keeps the fingerprint comparisons free
// of floating point entirely.
func (l Landmark) DistSquared(other Landmark) int64 {
	dx := l.X - other.X
	dy := l.Y - other.Y
	dz := l.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Manhattan returns the Manhattan (taxicab) distance to other.
func (l Landmark) Manhattan(other Landmark) int64 {
	return absInt64(l.X-other.X) + absInt64(l.Y-other.Y) + absInt64(l.Z-other.Z)
}

// Add returns the component-wise sum l + other.
func (l Landmark) Add(other Landmark) Landmark {
	return Landmark{X: l.X + other.X, Y: l.Y + other.Y, Z: l.Z + other.Z}
}

// Sub returns the component-wise difference l - other.
func (l Landmark) Sub(other Landmark) Landmark {
	return Landmark{X: l.X - other.X, Y: l.Y - other.Y, Z: l.Z - other.Z}
}

func (l Landmark) String() string {
	return fmt.Sprintf("%d,%d,%d", l.X, l.Y, l.Z)
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// SensorReading is one sensor's observation: an ordered list of landmarks in
// the sensor's own local frame, plus the distance fingerprint derived from
// them. The fingerprint is built once at construction and never mutated.
//
// Placement state (orientation and offset relative to the global frame) is
// written exactly once by the correlator when the sensor is merged.
type SensorReading struct {
	ID        int
	Landmarks []Landmark

	fingerprint []distanceSet

	placed      bool
	orientation int
	offset      Landmark
}

// NewSensorReading builds a reading and its pairwise-distance fingerprint.
func NewSensorReading(id int, landmarks []Landmark) *SensorReading {
	return &SensorReading{
		ID:          id,
		Landmarks:   landmarks,
		fingerprint: buildFingerprint(landmarks),
	}
}

// Placed reports whether the sensor has been merged into the global frame.
func (s *SensorReading) Placed() bool {
	return s.placed
}

// Origin returns the sensor's position in the global frame. Only meaningful
// after placement; the anchor sensor's origin is the zero landmark.
func (s *SensorReading) Origin() Landmark {
	return s.offset
}

// Orientation returns the index into the orientation table chosen when the
// sensor was placed.
func (s *SensorReading) Orientation() int {
	return s.orientation
}

// place rotates and translates every landmark into the global frame and
// records the sensor's pose. A reading transitions pending -> placed exactly
// once; a second call is a programming error.
func (s *SensorReading) place(orientation int, offset Landmark) {
	if s.placed {
		panic(fmt.Sprintf("sensor %d placed twice", s.ID))
	}
	for i, l := range s.Landmarks {
		s.Landmarks[i] = l.Oriented(orientation).Add(offset)
	}
	s.orientation = orientation
	s.offset = offset
	s.placed = true
}

// GlobalMap accumulates the deduplicated landmark set and per-sensor origins
// as the correlator places sensors into the shared frame.
type GlobalMap struct {
	landmarks map[Landmark]struct{}
	origins   map[int]Landmark
	order     []int
}

// NewGlobalMap returns an empty global map.
func NewGlobalMap() *GlobalMap {
	return &GlobalMap{
		landmarks: make(map[Landmark]struct{}),
		origins:   make(map[int]Landmark),
	}
}

// merge folds a placed sensor's transformed landmarks into the set.
// Duplicate coordinates collapse by map semantics.
func (g *GlobalMap) merge(s *SensorReading) {
	for _, l := range s.Landmarks {
		g.landmarks[l] = struct{}{}
	}
	g.origins[s.ID] = s.Origin()
	g.order = append(g.order, s.ID)
}

// Size returns the number of distinct landmarks, which answers "how many
// physical beacons exist".
func (g *GlobalMap) Size() int {
	return len(g.landmarks)
}

// Contains reports whether the given global-frame coordinate is in the set.
func (g *GlobalMap) Contains(l Landmark) bool {
	_, ok := g.landmarks[l]
	return ok
}

// Landmarks returns the distinct landmarks sorted by (X, Y, Z) for
// deterministic output.
func (g *GlobalMap) Landmarks() []Landmark {
	out := make([]Landmark, 0, len(g.landmarks))
	for l := range g.landmarks {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return out
}

// Origins returns a copy of the per-sensor origin map.
func (g *GlobalMap) Origins() map[int]Landmark {
	out := make(map[int]Landmark, len(g.origins))
	for id, o := range g.origins {
		out[id] = o
	}
	return out
}

// PlacedOrder returns sensor ids in the order they were merged.
func (g *GlobalMap) PlacedOrder() []int {
	out := make([]int, len(g.order))
	copy(out, g.order)
	return out
}

// MaxManhattan returns the maximum pairwise Manhattan distance between sensor
// origins. With fewer than two placed sensors the result is 0.
func (g *GlobalMap) MaxManhattan() int64 {
	origins := make([]Landmark, 0, len(g.origins))
	for _, o := range g.origins {
		origins = append(origins, o)
	}

	var best int64
	for i := 0; i < len(origins); i++ {
		for j := i + 1; j < len(origins); j++ {
			if d := origins[i].Manhattan(origins[j]); d > best {
				best = d
			}
		}
	}
	return best
}
