package scene

import (
	"sync"
	"time"
)

// StateTracker keeps the latest frame and scene for the HTTP endpoints.
// It is a FrameSink and a SceneObserver.
type StateTracker struct {
	mu         sync.RWMutex
	frame      *PointCloud
	scene      *Scene
	frames     uint64
	scenes     uint64
	lastUpdate time.Time
}

// NewStateTracker creates an empty tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{}
}

// PublishFrame records the frame as the latest one
func (st *StateTracker) PublishFrame(frame *PointCloud) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.frame = frame
	st.frames++
	st.lastUpdate = time.Now()
	return nil
}

// ObserveScene records the scene as the latest one
func (st *StateTracker) ObserveScene(s *Scene) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.scene = s
	st.scenes++
}

// LatestFrame returns a copy of the most recent frame
func (st *StateTracker) LatestFrame() (*PointCloud, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.frame == nil {
		return nil, false
	}
	return st.frame.Clone(), true
}

// LatestScene returns the most recent scene. Scenes are immutable, so the
// pointer is shared.
func (st *StateTracker) LatestScene() (*Scene, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.scene, st.scene != nil
}

// TrackerStats summarizes tracker activity
type TrackerStats struct {
	Frames     uint64    `json:"frames"`
	Scenes     uint64    `json:"scenes"`
	LastUpdate time.Time `json:"lastUpdate"`
	Points     int       `json:"points"`
}

// Stats returns counters and the size of the latest frame
func (st *StateTracker) Stats() TrackerStats {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return TrackerStats{
		Frames:     st.frames,
		Scenes:     st.scenes,
		LastUpdate: st.lastUpdate,
		Points:     st.frame.Len(),
	}
}

// HasFrame reports whether any frame has been recorded
func (st *StateTracker) HasFrame() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.frame != nil
}
