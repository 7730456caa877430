package math

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler holds the per-feature mean and standard deviation of a dataset.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	StDev []float64 `json:"std"`
}

// Fit computes the population mean and standard deviation of every column.
func Fit(rows [][]float64) (Scaler, error) {
	if len(rows) == 0 {
		return Scaler{}, fmt.Errorf("no rows to fit")
	}
	dim := len(rows[0])
	if dim == 0 {
		return Scaler{}, fmt.Errorf("rows have no features")
	}
	for i, row := range rows {
		if len(row) != dim {
			return Scaler{}, fmt.Errorf("inconsistent row width at %d: %d vs %d", i, len(row), dim)
		}
	}
	scaler := Scaler{
		Mean:  make([]float64, dim),
		StDev: make([]float64, dim),
	}
	col := make([]float64, len(rows))
	for j := 0; j < dim; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		scaler.Mean[j] = mean
		scaler.StDev[j] = math.Sqrt(variance)
	}
	return scaler, nil
}

// Transform scales the rows to zero mean and unit variance.
// Constant columns are only centered.
func (s Scaler) Transform(rows [][]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(s.Mean), nil)
	for i, row := range rows {
		for j, v := range row {
			v -= s.Mean[j]
			if s.StDev[j] > 0 {
				v /= s.StDev[j]
			}
			m.Set(i, j, v)
		}
	}
	return m
}

// Standardize fits a scaler on the rows and transforms them.
func Standardize(rows [][]float64) (*mat.Dense, Scaler, error) {
	scaler, err := Fit(rows)
	if err != nil {
		return nil, scaler, err
	}
	return scaler.Transform(rows), scaler, nil
}

// Matrix copies the rows into a dense matrix.
func Matrix(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, fmt.Errorf("inconsistent row width at %d: %d vs %d", i, len(row), len(rows[0]))
		}
		m.SetRow(i, row)
	}
	return m, nil
}

// Rows copies the matrix into a slice of rows.
func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, m)
	}
	return rows
}
