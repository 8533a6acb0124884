package model

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatrix(t *testing.T) {
	m, err := NewMatrix([]int64{1, 2, 3}, [][]float64{
		{0, 40, 70},
		{42, 0, 75},
		{71, 76, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []int64{1, 2, 3}, m.IDs())
	assert.True(t, m.Has(2))
	assert.False(t, m.Has(9))

	v, ok := m.Time(1, 2)
	require.True(t, ok)
	assert.InDelta(t, 40.0, v, 1e-9)

	// Rows are origins.
	v, ok = m.Time(2, 1)
	require.True(t, ok)
	assert.InDelta(t, 42.0, v, 1e-9)

	_, ok = m.Time(1, 9)
	assert.False(t, ok)

	row, ok := m.Row(3)
	require.True(t, ok)
	assert.Equal(t, []float64{71, 76, 0}, row)
}

func TestNewMatrix_CopiesInput(t *testing.T) {
	values := [][]float64{{0, 1}, {1, 0}}
	m, err := NewMatrix([]int64{1, 2}, values)
	require.NoError(t, err)

	values[0][1] = 99
	v, _ := m.Time(1, 2)
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestNewMatrix_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		ids    []int64
		values [][]float64
		want   string
	}{
		{"row count", []int64{1, 2}, [][]float64{{0, 1}}, "2 ids but 1 rows"},
		{"not square", []int64{1, 2}, [][]float64{{0, 1}, {1}}, "row 1 has 1 columns"},
		{"negative", []int64{1, 2}, [][]float64{{0, -1}, {1, 0}}, "invalid travel time"},
		{"nan", []int64{1, 2}, [][]float64{{0, math.NaN()}, {1, 0}}, "invalid travel time"},
		{"inf", []int64{1, 2}, [][]float64{{0, 1}, {math.Inf(1), 0}}, "invalid travel time"},
		{"duplicate id", []int64{1, 1}, [][]float64{{0, 1}, {1, 0}}, "duplicate id 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMatrix(tt.ids, tt.values)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSettlementDenser(t *testing.T) {
	a := Settlement{Level: 7}
	b := Settlement{Level: 5}
	assert.True(t, a.Denser(b))
	assert.False(t, b.Denser(a))
	assert.False(t, a.Denser(a))
}
