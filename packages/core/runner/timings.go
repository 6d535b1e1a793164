package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const maxLatencyUs = 60_000_000

// Timings aggregates block durations of one run.
type Timings struct {
	// Histogram: 1us to 60s range, 3 significant digits
	histogram *hdrhistogram.Histogram
}

func NewTimings() *Timings {
	return &Timings{histogram: hdrhistogram.New(1, maxLatencyUs, 3)}
}

// Record adds one duration, clamped to the histogram range.
func (t *Timings) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	_ = t.histogram.RecordValue(us)
}

func (t *Timings) Count() int64 {
	return t.histogram.TotalCount()
}

// Percentile returns the duration at quantile q (0-100).
func (t *Timings) Percentile(q float64) time.Duration {
	if t.histogram.TotalCount() == 0 {
		return 0
	}
	return time.Duration(t.histogram.ValueAtQuantile(q)) * time.Microsecond
}

func (t *Timings) Min() time.Duration {
	return time.Duration(t.histogram.Min()) * time.Microsecond
}

func (t *Timings) Max() time.Duration {
	return time.Duration(t.histogram.Max()) * time.Microsecond
}

func (t *Timings) Mean() time.Duration {
	return time.Duration(t.histogram.Mean()) * time.Microsecond
}

// Summary is the latency digest reported after a run.
type Summary struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

func (t *Timings) Summary() Summary {
	if t.Count() == 0 {
		return Summary{}
	}
	return Summary{
		Count: t.Count(),
		Min:   t.Min(),
		Max:   t.Max(),
		Mean:  t.Mean(),
		P50:   t.Percentile(50),
		P95:   t.Percentile(95),
		P99:   t.Percentile(99),
	}
}
