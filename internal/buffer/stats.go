package buffer

import (
	"fmt"
	"math"
	"sort"
)

// Stats is a set of statistical properties of a stream of numbers.
// Mean and variance are updated incrementally with welford's method.
type Stats struct {
	count          int
	sum            float64
	min, max       float64
	mean, dSquared float64
}

// NewStats creates a new Stats.
func NewStats() *Stats {
	return &Stats{
		min: math.Inf(1),
		max: math.Inf(-1),
	}
}

// Push adds another element to the set.
func (s *Stats) Push(v float64) {
	s.count++
	s.sum += v
	diff := (v - s.mean) / float64(s.count)
	mean := s.mean + diff
	squaredDiff := (v - mean) * (v - s.mean)
	s.dSquared += squaredDiff
	s.mean = mean

	if s.min > v {
		s.min = v
	}

	if s.max < v {
		s.max = v
	}
}

// Avg returns the average value of the set.
func (s Stats) Avg() float64 {
	return s.mean
}

// Sum returns the sum of the set.
func (s Stats) Sum() float64 {
	return s.sum
}

// Count returns the number of elements.
func (s Stats) Count() int {
	return s.count
}

// Min returns the smallest element.
func (s Stats) Min() float64 {
	return s.min
}

// Max returns the largest element.
func (s Stats) Max() float64 {
	return s.max
}

// Variance is the population variance of the set.
func (s Stats) Variance() float64 {
	if s.count == 0 {
		return 0
	}
	return s.dSquared / float64(s.count)
}

// StDev is the population standard deviation of the set.
func (s Stats) StDev() float64 {
	return math.Sqrt(s.Variance())
}

// SampleVariance is the sample variance of the set.
func (s Stats) SampleVariance() float64 {
	if s.count < 2 {
		return 0
	}
	return s.dSquared / float64(s.count-1)
}

// SampleStDev is the sample standard deviation of the set.
func (s Stats) SampleStDev() float64 {
	return math.Sqrt(s.SampleVariance())
}

// Summary is a snapshot of a Stats.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	StDev float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Summary returns the current snapshot of the set.
func (s Stats) Summary() Summary {
	if s.count == 0 {
		return Summary{}
	}
	return Summary{
		Count: s.count,
		Mean:  s.mean,
		StDev: s.StDev(),
		Min:   s.min,
		Max:   s.max,
	}
}

// StatsCollector is a collection of Stats variables.
// This enables multi-dimensional tracking.
type StatsCollector struct {
	dim   int
	stats []*Stats
}

// NewStatsCollector creates a new Stats collector.
func NewStatsCollector(dim int) *StatsCollector {
	stats := make([]*Stats, dim)
	for i := 0; i < dim; i++ {
		stats[i] = NewStats()
	}
	return &StatsCollector{
		dim:   dim,
		stats: stats,
	}
}

// Push pushes each value to the corresponding dimension.
func (sc *StatsCollector) Push(v ...float64) {
	if len(v) != sc.dim {
		panic(fmt.Sprintf("inconsistent dimensions %d vs %d", len(v), sc.dim))
	}
	for i := 0; i < len(sc.stats); i++ {
		sc.stats[i].Push(v[i])
	}
}

func (sc StatsCollector) Stats() []*Stats {
	return sc.stats
}

// Size returns the number of pushed vectors.
func (sc *StatsCollector) Size() int {
	if len(sc.stats) == 0 {
		return 0
	}
	// all dimensions have the same size
	return sc.stats[0].count
}

// Summary returns the snapshot of every dimension.
func (sc StatsCollector) Summary() []Summary {
	summaries := make([]Summary, len(sc.stats))
	for i, s := range sc.stats {
		summaries[i] = s.Summary()
	}
	return summaries
}

// Groups collects the statistics of vectors per group key.
type Groups struct {
	dim    int
	groups map[int]*StatsCollector
}

// NewGroups creates new grouped statistics for vectors of the given dimension.
func NewGroups(dim int) *Groups {
	return &Groups{
		dim:    dim,
		groups: make(map[int]*StatsCollector),
	}
}

// Push adds the vector to the statistics of the given group.
func (g *Groups) Push(key int, v ...float64) {
	sc, ok := g.groups[key]
	if !ok {
		sc = NewStatsCollector(g.dim)
		g.groups[key] = sc
	}
	sc.Push(v...)
}

// Keys returns the groups in increasing order.
func (g *Groups) Keys() []int {
	keys := make([]int, 0, len(g.groups))
	for k := range g.groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Get returns the statistics of the given group.
func (g *Groups) Get(key int) (*StatsCollector, bool) {
	sc, ok := g.groups[key]
	return sc, ok
}
