package cluster

import (
	"encoding/json"
	"fmt"
)

// Partition assigns every row of a dataset to exactly one cluster id in [0, k).
// Ids of partitions produced by different algorithms are not comparable.
// A partition is immutable, accessors return copies.
type Partition struct {
	algorithm string
	k         int
	labels    []int
}

// NewPartition creates a partition out of the given labels.
func NewPartition(algorithm string, k int, labels []int) (Partition, error) {
	if k < 1 {
		return Partition{}, fmt.Errorf("cluster count must be positive, got %d: %w", k, ErrInvalidPartition)
	}
	if len(labels) == 0 {
		return Partition{}, fmt.Errorf("no rows assigned: %w", ErrInvalidPartition)
	}
	for i, l := range labels {
		if l < 0 || l >= k {
			return Partition{}, fmt.Errorf("row %d has cluster id %d outside [0,%d): %w", i, l, k, ErrInvalidPartition)
		}
	}
	ll := make([]int, len(labels))
	copy(ll, labels)
	return Partition{
		algorithm: algorithm,
		k:         k,
		labels:    ll,
	}, nil
}

// Algorithm returns the name of the algorithm that produced the partition.
func (p Partition) Algorithm() string {
	return p.algorithm
}

// K returns the target number of clusters.
func (p Partition) K() int {
	return p.k
}

// Len returns the number of rows.
func (p Partition) Len() int {
	return len(p.labels)
}

// Label returns the cluster id of row i.
func (p Partition) Label(i int) int {
	return p.labels[i]
}

// Labels returns a copy of the cluster id of every row.
func (p Partition) Labels() []int {
	ll := make([]int, len(p.labels))
	copy(ll, p.labels)
	return ll
}

// Sizes returns the number of rows assigned to each id.
func (p Partition) Sizes() []int {
	sizes := make([]int, p.k)
	for _, l := range p.labels {
		sizes[l]++
	}
	return sizes
}

// Clusters returns the number of distinct ids in use.
func (p Partition) Clusters() int {
	var c int
	for _, s := range p.Sizes() {
		if s > 0 {
			c++
		}
	}
	return c
}

// Members returns the row indices of each id.
func (p Partition) Members() [][]int {
	members := make([][]int, p.k)
	for i, l := range p.labels {
		members[l] = append(members[l], i)
	}
	return members
}

type partitionJSON struct {
	Algorithm string `json:"algorithm"`
	K         int    `json:"k"`
	Labels    []int  `json:"labels"`
}

func (p Partition) MarshalJSON() ([]byte, error) {
	return json.Marshal(partitionJSON{
		Algorithm: p.algorithm,
		K:         p.k,
		Labels:    p.labels,
	})
}

func (p *Partition) UnmarshalJSON(data []byte) error {
	var pj partitionJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	partition, err := NewPartition(pj.Algorithm, pj.K, pj.Labels)
	if err != nil {
		return err
	}
	*p = partition
	return nil
}
