package evaluation

import (
	"errors"
	"fmt"

	"github.com/drakos74/go-ex-machina/xmath"
	"github.com/drakos74/latent-cluster/internal/cluster"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	SilhouetteName       = "silhouette"
	CalinskiHarabaszName = "calinski_harabasz"
	DaviesBouldinName    = "davies_bouldin"
)

var ErrDegeneratePartition = errors.New("degenerate partition")

// Report holds the quality scores of one partition.
type Report struct {
	Algorithm        string  `json:"algorithm"`
	Clusters         int     `json:"clusters"`
	Silhouette       float64 `json:"silhouette"`
	CalinskiHarabasz float64 `json:"calinski_harabasz"`
	DaviesBouldin    float64 `json:"davies_bouldin"`
}

// Scores returns the report values keyed by metric name.
func (r Report) Scores() map[string]float64 {
	return map[string]float64{
		SilhouetteName:       r.Silhouette,
		CalinskiHarabaszName: r.CalinskiHarabasz,
		DaviesBouldinName:    r.DaviesBouldin,
	}
}

// Evaluate scores the partition of the given rows.
// It fails with ErrDegeneratePartition unless the partition uses at least 2 and fewer than N ids.
func Evaluate(data *mat.Dense, p cluster.Partition) (Report, error) {
	g, err := prepare(data, p)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Algorithm:        p.Algorithm(),
		Clusters:         len(g.members),
		Silhouette:       g.silhouette(),
		CalinskiHarabasz: g.calinskiHarabasz(),
		DaviesBouldin:    g.daviesBouldin(),
	}, nil
}

// Silhouette returns the mean silhouette coefficient of the partition, in [-1, 1].
func Silhouette(data *mat.Dense, p cluster.Partition) (float64, error) {
	g, err := prepare(data, p)
	if err != nil {
		return 0, err
	}
	return g.silhouette(), nil
}

// CalinskiHarabasz returns the variance ratio criterion of the partition.
func CalinskiHarabasz(data *mat.Dense, p cluster.Partition) (float64, error) {
	g, err := prepare(data, p)
	if err != nil {
		return 0, err
	}
	return g.calinskiHarabasz(), nil
}

// DaviesBouldin returns the davies-bouldin index of the partition.
func DaviesBouldin(data *mat.Dense, p cluster.Partition) (float64, error) {
	g, err := prepare(data, p)
	if err != nil {
		return 0, err
	}
	return g.daviesBouldin(), nil
}

// groups is the partition of the rows restricted to the non-empty ids.
type groups struct {
	pts       []xmath.Vector
	members   [][]int
	centroids []xmath.Vector
	centroid  xmath.Vector
}

func prepare(data *mat.Dense, p cluster.Partition) (groups, error) {
	if data == nil || data.IsEmpty() {
		return groups{}, fmt.Errorf("no rows to evaluate: %w", ErrDegeneratePartition)
	}
	n, dim := data.Dims()
	if p.Len() != n {
		return groups{}, fmt.Errorf("partition of %d rows for %d data rows: %w", p.Len(), n, ErrDegeneratePartition)
	}

	var members [][]int
	for _, m := range p.Members() {
		if len(m) > 0 {
			members = append(members, m)
		}
	}
	if len(members) < 2 || len(members) >= n {
		return groups{}, fmt.Errorf("%d clusters for %d rows, need at least 2 and fewer than the rows: %w", len(members), n, ErrDegeneratePartition)
	}

	g := groups{
		pts:       make([]xmath.Vector, n),
		members:   members,
		centroids: make([]xmath.Vector, len(members)),
		centroid:  xmath.Vec(dim),
	}
	for i := range g.pts {
		g.pts[i] = xmath.Vector(mat.Row(nil, i, data))
		g.centroid = g.centroid.Add(g.pts[i])
	}
	g.centroid = g.centroid.Mult(1 / float64(n))
	for c, m := range members {
		centroid := xmath.Vec(dim)
		for _, i := range m {
			centroid = centroid.Add(g.pts[i])
		}
		g.centroids[c] = centroid.Mult(1 / float64(len(m)))
	}
	return g, nil
}

// distance is the euclidean distance, computed without allocating.
func distance(v, w xmath.Vector) float64 {
	return floats.Distance(v, w, 2)
}
