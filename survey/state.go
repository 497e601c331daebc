package survey

import (
	"sort"
	"sync"
	"time"
)

// Pose is a placed sensor's recovered position and orientation in the global
// frame.
type Pose struct {
	Origin      Landmark `json:"origin"`
	Orientation int      `json:"orientation"`
}

// Solution is the outcome of one completed correlation run.
type Solution struct {
	Map           *GlobalMap   `json:"-"`
	LandmarkCount int          `json:"landmarkCount"`
	MaxDistance   int64        `json:"maxDistance"`
	Poses         map[int]Pose `json:"poses"`
	SolvedAt      time.Time    `json:"solvedAt"`
}

// Tracker accumulates the latest reading from each sensor and owns the solved
// global map. Readings arrive from MQTT or HTTP at any time; solving snapshots
// the stored landmark lists and builds fresh SensorReadings, so a stored
// reading is never mutated and a sensor can re-report between solves.
//
// The solve/merge transition is a single critical section: two solves never
// interleave their merges, and readers always observe either the previous
// complete solution or the new one.
type Tracker struct {
	mu        sync.RWMutex
	landmarks map[int][]Landmark
	solution  *Solution
	lastErr   error
	cfg       CorrelatorConfig
}

// NewTracker creates a tracker using the given correlator configuration.
func NewTracker(cfg CorrelatorConfig) *Tracker {
	return &Tracker{
		landmarks: make(map[int][]Landmark),
		cfg:       cfg,
	}
}

// UpdateReading stores the latest landmark list reported by a sensor,
// replacing any previous report.
func (t *Tracker) UpdateReading(id int, landmarks []Landmark) {
	stored := make([]Landmark, len(landmarks))
	copy(stored, landmarks)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.landmarks[id] = stored
}

// SensorCount returns how many sensors have reported at least once.
func (t *Tracker) SensorCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.landmarks)
}

// HasReading reports whether the given sensor has reported.
func (t *Tracker) HasReading(id int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.landmarks[id]
	return ok
}

// Readings returns copies of the stored landmark lists keyed by sensor id.
func (t *Tracker) Readings() map[int][]Landmark {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[int][]Landmark, len(t.landmarks))
	for id, ls := range t.landmarks {
		c := make([]Landmark, len(ls))
		copy(c, ls)
		out[id] = c
	}
	return out
}

// Solve correlates a snapshot of the stored readings into a global map and
// records the result. Returns the new solution, or the correlation error
// (ErrUnsolvableOverlap, ErrAmbiguousOrientation) which is also retained for
// LastError.
func (t *Tracker) Solve() (*Solution, error) {
	snapshot := t.Readings()

	readings := make([]*SensorReading, 0, len(snapshot))
	for _, id := range sortedReadingIDs(snapshot) {
		readings = append(readings, NewSensorReading(id, snapshot[id]))
	}

	global, err := Correlate(readings, t.cfg)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.lastErr = err
		return nil, err
	}

	poses := make(map[int]Pose, len(readings))
	for _, r := range readings {
		poses[r.ID] = Pose{Origin: r.Origin(), Orientation: r.Orientation()}
	}

	t.solution = &Solution{
		Map:           global,
		LandmarkCount: global.Size(),
		MaxDistance:   global.MaxManhattan(),
		Poses:         poses,
		SolvedAt:      time.Now(),
	}
	t.lastErr = nil
	return t.solution, nil
}

// Solution returns the most recent successful solution, or nil.
func (t *Tracker) Solution() *Solution {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.solution
}

// LastError returns the error from the most recent solve attempt, or nil if
// it succeeded.
func (t *Tracker) LastError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastErr
}

func sortedReadingIDs(m map[int][]Landmark) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
