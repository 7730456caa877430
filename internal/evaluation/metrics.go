package evaluation

import (
	"math"
)

// silhouette is the mean over all rows of (b-a)/max(a,b), where a is the mean distance
// to the rest of the own cluster and b the mean distance to the nearest other cluster.
// Rows of singleton clusters score 0.
func (g groups) silhouette() float64 {
	label := make([]int, len(g.pts))
	for c, m := range g.members {
		for _, i := range m {
			label[i] = c
		}
	}
	sums := make([]float64, len(g.members))
	var total float64
	for i, p := range g.pts {
		own := len(g.members[label[i]])
		if own == 1 {
			continue
		}
		for c := range sums {
			sums[c] = 0
		}
		for j, q := range g.pts {
			if j == i {
				continue
			}
			sums[label[j]] += distance(p, q)
		}
		a := sums[label[i]] / float64(own-1)
		b := math.Inf(1)
		for c, m := range g.members {
			if c == label[i] {
				continue
			}
			b = math.Min(b, sums[c]/float64(len(m)))
		}
		if d := math.Max(a, b); d > 0 {
			total += (b - a) / d
		}
	}
	return total / float64(len(g.pts))
}

// calinskiHarabasz is the ratio of the between-cluster to the within-cluster dispersion,
// each normalised by its degrees of freedom.
func (g groups) calinskiHarabasz() float64 {
	n, k := float64(len(g.pts)), float64(len(g.members))
	var between, within float64
	for c, m := range g.members {
		d := distance(g.centroids[c], g.centroid)
		between += float64(len(m)) * d * d
		for _, i := range m {
			d := distance(g.pts[i], g.centroids[c])
			within += d * d
		}
	}
	if within == 0 {
		return 1
	}
	return between * (n - k) / (within * (k - 1))
}

// daviesBouldin is the mean over the clusters of the worst ratio of summed scatter
// to centroid separation. Coinciding centroids count as infinitely separated.
func (g groups) daviesBouldin() float64 {
	k := len(g.members)
	scatter := make([]float64, k)
	var anyScatter bool
	for c, m := range g.members {
		for _, i := range m {
			scatter[c] += distance(g.pts[i], g.centroids[c])
		}
		scatter[c] /= float64(len(m))
		if scatter[c] > 0 {
			anyScatter = true
		}
	}
	if !anyScatter {
		return 0
	}
	var total float64
	for a := 0; a < k; a++ {
		var worst float64
		for b := 0; b < k; b++ {
			if a == b {
				continue
			}
			d := distance(g.centroids[a], g.centroids[b])
			if d == 0 {
				continue
			}
			worst = math.Max(worst, (scatter[a]+scatter[b])/d)
		}
		total += worst
	}
	return total / float64(k)
}
