package cluster

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// neighbors returns for every row the indices of its nn nearest other rows,
// closest first, ties broken by index.
// Rows are split in contiguous ranges across the workers, each writing its own range.
func neighbors(pts [][]float64, nn, numWorkers int) [][]int {
	n := len(pts)
	nn = min(nn, n-1)
	result := make([][]int, n)

	search := func(start, end int) {
		idx := make([]int, 0, n-1)
		dist := make([]float64, n)
		for i := start; i < end; i++ {
			idx = idx[:0]
			for j := range pts {
				if j == i {
					continue
				}
				dist[j] = sqDist(pts[i], pts[j])
				idx = append(idx, j)
			}
			sort.Slice(idx, func(a, b int) bool {
				da, db := dist[idx[a]], dist[idx[b]]
				if da != db {
					return da < db
				}
				return idx[a] < idx[b]
			})
			nb := make([]int, nn)
			copy(nb, idx[:nn])
			result[i] = nb
		}
	}

	if numWorkers <= 1 || n <= 1 {
		search(0, n)
		return result
	}

	var wg sync.WaitGroup
	rowsPerWorker := (n + numWorkers - 1) / numWorkers
	for w := 0; w < numWorkers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, n)
		if start >= n {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			search(start, end)
		}(start, end)
	}
	wg.Wait()
	return result
}

// knnGraph builds the symmetric nearest neighbour graph over the rows.
// Each direction of a neighbour relation contributes 0.5 to the edge weight,
// so mutual neighbours are linked with weight 1.
func knnGraph(pts [][]float64, nn, numWorkers int) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range pts {
		g.AddNode(simple.Node(i))
	}
	for i, nb := range neighbors(pts, nn, numWorkers) {
		for _, j := range nb {
			w := 0.5
			if e := g.WeightedEdge(int64(i), int64(j)); e != nil {
				w += e.Weight()
			}
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(j), w))
		}
	}
	return g
}

// components returns the connected components of the graph as sorted node ids,
// ordered by their smallest member.
func components(g graph.Undirected) [][]int64 {
	cc := topo.ConnectedComponents(g)
	ids := make([][]int64, len(cc))
	for c, nodes := range cc {
		ids[c] = make([]int64, len(nodes))
		for i, node := range nodes {
			ids[c][i] = node.ID()
		}
		sort.Slice(ids[c], func(a, b int) bool { return ids[c][a] < ids[c][b] })
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a][0] < ids[b][0] })
	return ids
}

// connect links every pair of disconnected components through their closest pair of rows.
// It returns the number of components found before linking.
func connect(g *simple.WeightedUndirectedGraph, pts [][]float64) int {
	cc := components(g)
	for a := 1; a < len(cc); a++ {
		for b := 0; b < a; b++ {
			u, v, best := int64(-1), int64(-1), math.Inf(1)
			for _, i := range cc[a] {
				for _, j := range cc[b] {
					if d := sqDist(pts[i], pts[j]); d < best {
						u, v, best = i, j, d
					}
				}
			}
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(u), simple.Node(v), 1))
		}
	}
	return len(cc)
}
