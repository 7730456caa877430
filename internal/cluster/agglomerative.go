package cluster

import (
	"container/heap"
	"fmt"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// Agglomerative is the connectivity-constrained hierarchical strategy.
// Starting from singletons it merges, with ward linkage, only clusters
// that are adjacent in the nearest neighbour graph, until exactly k remain.
type Agglomerative struct {
	Neighbors int
	Workers   int
}

// NewAgglomerative creates a new hierarchical strategy over a 20 nearest neighbour graph.
func NewAgglomerative(workers int) *Agglomerative {
	return &Agglomerative{
		Neighbors: 20,
		Workers:   workers,
	}
}

func (a *Agglomerative) Name() string {
	return AgglomerativeName
}

// node is a cluster of the merge tree.
type node struct {
	size     float64
	centroid []float64
}

// merge is a candidate merge of two adjacent clusters, a < b.
type merge struct {
	cost float64
	a, b int64
}

type merges []merge

func (m merges) Len() int { return len(m) }
func (m merges) Less(i, j int) bool {
	if m[i].cost != m[j].cost {
		return m[i].cost < m[j].cost
	}
	if m[i].a != m[j].a {
		return m[i].a < m[j].a
	}
	return m[i].b < m[j].b
}
func (m merges) Swap(i, j int)       { m[i], m[j] = m[j], m[i] }
func (m *merges) Push(x interface{}) { *m = append(*m, x.(merge)) }
func (m *merges) Pop() interface{} {
	old := *m
	x := old[len(old)-1]
	*m = old[:len(old)-1]
	return x
}

// ward is the increase of the within-cluster sum of squares when merging x and y.
func ward(x, y node) float64 {
	return x.size * y.size / (x.size + y.size) * sqDist(x.centroid, y.centroid)
}

func (a *Agglomerative) Fit(data *mat.Dense, k int) (Partition, error) {
	if err := check(data, k); err != nil {
		return Partition{}, err
	}
	pts := points(data)
	n := len(pts)

	g := knnGraph(pts, a.Neighbors, workers(a.Workers))
	if cc := connect(g, pts); cc > 1 {
		log.Debug().Int("components", cc).Msg("linked disconnected neighbour graph")
	}

	// cluster ids: rows are 0..n-1, merged clusters n..2n-2
	nodes := make([]node, n, 2*n-1)
	for i, p := range pts {
		nodes[i] = node{size: 1, centroid: clone(p)}
	}
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = -1
	}

	candidates := &merges{}
	edges := g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		u, v := e.From().ID(), e.To().ID()
		if u > v {
			u, v = v, u
		}
		*candidates = append(*candidates, merge{cost: ward(nodes[u], nodes[v]), a: u, b: v})
	}
	heap.Init(candidates)

	for clusters := n; clusters > k; {
		if candidates.Len() == 0 {
			return Partition{}, fmt.Errorf("no adjacent clusters left at %d clusters: %w", clusters, ErrStrategyFailed)
		}
		next := heap.Pop(candidates).(merge)
		if g.Node(next.a) == nil || g.Node(next.b) == nil {
			// stale candidate of an already merged cluster
			continue
		}
		x, y := nodes[next.a], nodes[next.b]
		centroid := make([]float64, len(x.centroid))
		floats.AddScaled(centroid, x.size, x.centroid)
		floats.AddScaled(centroid, y.size, y.centroid)
		floats.Scale(1/(x.size+y.size), centroid)

		id := int64(len(nodes))
		nodes = append(nodes, node{size: x.size + y.size, centroid: centroid})
		parent[next.a], parent[next.b] = int(id), int(id)

		adjacent := make(map[int64]bool)
		for _, c := range []int64{next.a, next.b} {
			it := g.From(c)
			for it.Next() {
				adjacent[it.Node().ID()] = true
			}
		}
		g.RemoveNode(next.a)
		g.RemoveNode(next.b)
		g.AddNode(simple.Node(id))
		for c := range adjacent {
			if c == next.a || c == next.b {
				continue
			}
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(c), simple.Node(id), 1))
			heap.Push(candidates, merge{cost: ward(nodes[c], nodes[id]), a: c, b: id})
		}
		clusters--
	}

	// label the remaining roots in order of their first row
	ids := make(map[int]int)
	labels := make([]int, n)
	for i := range labels {
		root := i
		for parent[root] >= 0 {
			root = parent[root]
		}
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return NewPartition(a.Name(), k, labels)
}
