package tracker

import (
	"math"
	"sync"

	"github.com/banshee-data/objtrack/internal/config"
	"github.com/banshee-data/objtrack/internal/monitoring"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var logf = monitoring.Prefixed("tracker")

// Config holds the tracker tuning parameters.
type Config struct {
	MatchThreshold  float64 // Exclusive centroid distance for continuing an identity (pixels)
	MaxMissedFrames int     // Evict identities unseen for more than this many frames; 0 keeps them forever
}

// DefaultConfig returns tracker configuration loaded from the canonical
// tuning defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MatchThreshold:  cfg.GetMatchThreshold(),
		MaxMissedFrames: cfg.GetMaxMissedFrames(),
	}
}

// Observation is one detector box plus the label the classifier gave it.
type Observation struct {
	Box   Box
	Label string
}

// Record is the per-box output of a frame. Field names follow the
// inference service response contract.
type Record struct {
	Identity int64  `json:"objectid"`
	Label    string `json:"classname"`
	Left     int    `json:"xtl"`
	Right    int    `json:"xbr"`
	Top      int    `json:"ytl"`
	Bottom   int    `json:"ybr"`

	// Matched is true when the box continued an identity that existed
	// before this frame.
	Matched bool `json:"-"`
}

// Stats summarises the identity table.
type Stats struct {
	Frames           uint64  `json:"frames"`
	Objects          int     `json:"objects"`
	NextID           int64   `json:"next_id"`
	MeanHistory      float64 `json:"mean_history"`
	MaxHistory       int     `json:"max_history"`
	MeanDisplacement float64 `json:"mean_displacement_px"`
	MaxDisplacement  float64 `json:"max_displacement_px"`
}

// Tracker assigns stable identities to boxes across frames.
type Tracker struct {
	state  *State
	config Config

	mu sync.RWMutex
}

// NewTracker creates a tracker with an empty identity table.
func NewTracker(cfg Config) *Tracker {
	return NewTrackerWithState(cfg, NewState())
}

// NewTrackerWithState creates a tracker that owns the given state.
func NewTrackerWithState(cfg Config, state *State) *Tracker {
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}
	return &Tracker{state: state, config: cfg}
}

// UpdateConfig applies fn to the tracker's configuration under the lock.
func (t *Tracker) UpdateConfig(fn func(*Config)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.config)
}

// Config returns the current configuration.
func (t *Tracker) Config() Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.config
}

// ProcessFrame runs one frame: it clears the per-frame claims, then for each
// observation in detector order either continues the nearest unclaimed
// identity or allocates a new one. Identities allocated during the frame are
// claimed too, so every record in a frame carries a distinct identity.
// It returns one record per observation.
func (t *Tracker) ProcessFrame(obs []Observation) []Record {
	records, _ := t.ProcessFrameSeq(obs)
	return records
}

// ProcessFrameSeq is ProcessFrame that also returns the frame's sequence
// number (1 for the first frame after construction or reset).
func (t *Tracker) ProcessFrameSeq(obs []Observation) ([]Record, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.beginFrame()

	records := make([]Record, 0, len(obs))
	for _, o := range obs {
		id, _, ok := t.state.match(o.Box, t.config.MatchThreshold)
		if ok {
			t.state.update(id, o.Box)
		} else {
			id = t.state.create(o.Box)
			t.state.claim(id)
		}
		records = append(records, Record{
			Identity: id,
			Label:    o.Label,
			Left:     int(o.Box.Left),
			Right:    int(o.Box.Right),
			Top:      int(o.Box.Top),
			Bottom:   int(o.Box.Bottom),
			Matched:  ok,
		})
	}

	if evicted := t.state.evictStale(t.config.MaxMissedFrames); len(evicted) > 0 {
		logf("frame %d: evicted %d stale identities %v", t.state.frame, len(evicted), evicted)
	}
	return records, t.state.frame
}

// ResetAll clears every identity and restarts allocation at 0. It returns
// how many identities were cleared.
func (t *Tracker) ResetAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.state.objects)
	t.state.reset()
	return n
}

// Snapshot returns copies of all live identities in allocation order.
// History slices are copied so callers can read them without the lock.
func (t *Tracker) Snapshot() []TrackedObject {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]TrackedObject, 0, len(t.state.order))
	for _, id := range t.state.order {
		out = append(out, t.state.objects[id].clone())
	}
	return out
}

// Track returns a copy of one identity.
func (t *Tracker) Track(id int64) (TrackedObject, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	obj, ok := t.state.objects[id]
	if !ok {
		return TrackedObject{}, false
	}
	return obj.clone(), true
}

// Stats summarises the identity table.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{
		Frames:  t.state.frame,
		Objects: len(t.state.objects),
		NextID:  t.state.nextID,
	}
	if s.Objects == 0 {
		return s
	}

	lengths := make([]float64, 0, s.Objects)
	displacements := make([]float64, 0, s.Objects)
	for _, id := range t.state.order {
		obj := t.state.objects[id]
		lengths = append(lengths, float64(len(obj.History)))
		first := Centroid(obj.History[0])
		displacements = append(displacements, math.Hypot(
			float64(obj.Centroid.X-first.X),
			float64(obj.Centroid.Y-first.Y),
		))
	}
	s.MeanHistory = stat.Mean(lengths, nil)
	s.MaxHistory = int(floats.Max(lengths))
	s.MeanDisplacement = stat.Mean(displacements, nil)
	s.MaxDisplacement = floats.Max(displacements)
	return s
}
