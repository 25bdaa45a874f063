// Package sensor defines the read-only sensor collaborators the body
// controller consumes, and a latest-value Feed that producers write into.
//
// The IMU (BNO08x) and time-of-flight (VL53L1X) drivers live outside this
// module; they, or the HTTP push endpoint, call Feed.SetYaw / Feed.SetDistance.
package sensor

import (
	"math"
	"sync/atomic"
	"time"
)

// YawReader exposes the continuously updated IMU heading in degrees, (-180, 180].
type YawReader interface {
	Yaw() float64
}

// RangeReader exposes the continuously updated forward range in millimetres.
type RangeReader interface {
	DistanceMM() float64
}

// Reading is a point-in-time copy of the feed.
type Reading struct {
	Yaw          float64   `json:"yaw"`
	YawAt        time.Time `json:"yaw_at"`
	DistanceMM   float64   `json:"distance_mm"`
	DistanceAt   time.Time `json:"distance_at"`
	YawSamples   uint64    `json:"yaw_samples"`
	RangeSamples uint64    `json:"range_samples"`
}

// Feed stores the latest value of each channel without locks.
// The zero value reports yaw 0 and an unlimited distance.
type Feed struct {
	yaw          atomic.Uint64
	yawAt        atomic.Int64
	distance     atomic.Uint64
	distanceAt   atomic.Int64
	yawSamples   atomic.Uint64
	rangeSamples atomic.Uint64
	hasDistance  atomic.Bool
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// SetYaw publishes a new heading sample.
func (f *Feed) SetYaw(deg float64) {
	f.yaw.Store(math.Float64bits(deg))
	f.yawAt.Store(time.Now().UnixNano())
	f.yawSamples.Add(1)
}

// SetDistance publishes a new range sample.
func (f *Feed) SetDistance(mm float64) {
	f.distance.Store(math.Float64bits(mm))
	f.distanceAt.Store(time.Now().UnixNano())
	f.hasDistance.Store(true)
	f.rangeSamples.Add(1)
}

// Yaw implements YawReader.
func (f *Feed) Yaw() float64 {
	return math.Float64frombits(f.yaw.Load())
}

// DistanceMM implements RangeReader. Before the first sample it reports
// +Inf so that a missing range sensor never blocks walking.
func (f *Feed) DistanceMM() float64 {
	if !f.hasDistance.Load() {
		return math.Inf(1)
	}
	return math.Float64frombits(f.distance.Load())
}

// Reading returns a snapshot of both channels.
func (f *Feed) Reading() Reading {
	r := Reading{
		Yaw:          f.Yaw(),
		YawSamples:   f.yawSamples.Load(),
		RangeSamples: f.rangeSamples.Load(),
	}
	if ns := f.yawAt.Load(); ns != 0 {
		r.YawAt = time.Unix(0, ns)
	}
	if f.hasDistance.Load() {
		r.DistanceMM = f.DistanceMM()
		r.DistanceAt = time.Unix(0, f.distanceAt.Load())
	}
	return r
}

// YawFunc adapts a function to YawReader.
type YawFunc func() float64

// Yaw implements YawReader.
func (f YawFunc) Yaw() float64 { return f() }

// RangeFunc adapts a function to RangeReader.
type RangeFunc func() float64

// DistanceMM implements RangeReader.
func (f RangeFunc) DistanceMM() float64 { return f() }
