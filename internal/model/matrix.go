package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// Matrix is the square accessibility matrix of directed travel times in
// minutes. Row is the origin, column the destination. Rows and columns share
// the same settlement id ordering.
type Matrix struct {
	ids    []int64
	values [][]float64
	index  map[int64]int
}

// NewMatrix validates and wraps a square travel-time table.
func NewMatrix(ids []int64, values [][]float64) (*Matrix, error) {
	if len(values) != len(ids) {
		return nil, eris.Wrapf(ErrInvalidInput, "matrix: %d ids but %d rows", len(ids), len(values))
	}
	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		if _, dup := index[id]; dup {
			return nil, eris.Wrapf(ErrInvalidInput, "matrix: duplicate id %d", id)
		}
		index[id] = i
	}
	for i, row := range values {
		if len(row) != len(ids) {
			return nil, eris.Wrapf(ErrInvalidInput, "matrix: row %d has %d columns, want %d", i, len(row), len(ids))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, eris.Wrapf(ErrInvalidInput, "matrix: invalid travel time %v at [%d,%d]", v, i, j)
			}
		}
	}

	m := &Matrix{
		ids:    append([]int64(nil), ids...),
		values: make([][]float64, len(values)),
		index:  index,
	}
	for i, row := range values {
		m.values[i] = append([]float64(nil), row...)
	}
	return m, nil
}

// IDs returns the settlement ids in matrix order.
func (m *Matrix) IDs() []int64 {
	return append([]int64(nil), m.ids...)
}

// Len returns the matrix dimension.
func (m *Matrix) Len() int {
	return len(m.ids)
}

// Has reports whether id has a row and column.
func (m *Matrix) Has(id int64) bool {
	_, ok := m.index[id]
	return ok
}

// Time returns the travel time from one settlement to another.
func (m *Matrix) Time(from, to int64) (float64, bool) {
	i, ok := m.index[from]
	if !ok {
		return 0, false
	}
	j, ok := m.index[to]
	if !ok {
		return 0, false
	}
	return m.values[i][j], true
}

// Row returns a copy of the travel times from id to every settlement, in
// IDs order.
func (m *Matrix) Row(id int64) ([]float64, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), m.values[i]...), true
}
