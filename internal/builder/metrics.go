package builder

import (
	"sync"
	"time"
)

// MetricsSnapshot is a point-in-time copy of BuildMetrics.
type MetricsSnapshot struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	LastDuration     time.Duration
	LastBuild        time.Time
}

// SuccessRate returns the success rate as a percentage
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalBuilds == 0 {
		return 0.0
	}
	return float64(s.SuccessfulBuilds) / float64(s.TotalBuilds) * 100.0
}

// BuildMetrics tracks bundler invocations
type BuildMetrics struct {
	current MetricsSnapshot
	mutex   sync.RWMutex
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordBuild records the outcome of one bundler pass
func (bm *BuildMetrics) RecordBuild(duration time.Duration, err error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	m := &bm.current
	m.TotalBuilds++
	m.TotalDuration += duration
	m.LastDuration = duration
	m.LastBuild = time.Now()

	if err != nil {
		m.FailedBuilds++
	} else {
		m.SuccessfulBuilds++
	}

	m.AverageDuration = m.TotalDuration / time.Duration(m.TotalBuilds)
}

// GetSnapshot returns a snapshot of current metrics
func (bm *BuildMetrics) GetSnapshot() MetricsSnapshot {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return bm.current
}

// Reset resets all metrics
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()
	bm.current = MetricsSnapshot{}
}
