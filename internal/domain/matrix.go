package domain

import (
	"fmt"
	"math"
)

// Unreachable is the travel cost recorded for pairs the distance source could
// not resolve. It never wins a minimum while a finite alternative exists.
var Unreachable = math.Inf(1)

// Matrix is a row-major table of travel costs in meters.
// Cell (i, j) is the directed cost from origin i to destination j.
type Matrix struct {
	Rows int
	Cols int
	data []float64
}

// NewMatrix returns an n×n matrix with a zero diagonal and every other cell
// set to Unreachable.
func NewMatrix(n int) *Matrix {
	m := NewRectMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 0
	}
	return m
}

// NewRectMatrix returns a rows×cols matrix filled with Unreachable.
func NewRectMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("domain: negative matrix shape %dx%d", rows, cols))
	}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = Unreachable
	}
	return &Matrix{Rows: rows, Cols: cols, data: data}
}

// MatrixFromRows copies a [][]float64 into a Matrix. All rows must share a length.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return NewRectMatrix(0, 0), nil
	}
	cols := len(rows[0])
	m := NewRectMatrix(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("matrix from rows: row %d has %d columns, want %d", i, len(r), cols)
		}
		copy(m.data[i*cols:(i+1)*cols], r)
	}
	return m, nil
}

func (m *Matrix) At(i, j int) float64 { return m.data[i*m.Cols+j] }

func (m *Matrix) Set(i, j int, v float64) { m.data[i*m.Cols+j] = v }

// Row returns a view of row i. Mutating it mutates the matrix.
func (m *Matrix) Row(i int) []float64 { return m.data[i*m.Cols : (i+1)*m.Cols] }

// SetBlock copies b into m with b's (0,0) placed at (row, col).
func (m *Matrix) SetBlock(row, col int, b *Matrix) {
	if row+b.Rows > m.Rows || col+b.Cols > m.Cols {
		panic(fmt.Sprintf("domain: block %dx%d at (%d,%d) exceeds %dx%d", b.Rows, b.Cols, row, col, m.Rows, m.Cols))
	}
	for i := 0; i < b.Rows; i++ {
		copy(m.data[(row+i)*m.Cols+col:(row+i)*m.Cols+col+b.Cols], b.Row(i))
	}
}

// ZeroDiagonal forces M[i][i] = 0 on the leading square part of the matrix.
func (m *Matrix) ZeroDiagonal() {
	n := min(m.Rows, m.Cols)
	for i := 0; i < n; i++ {
		m.data[i*m.Cols+i] = 0
	}
}

// CountUnreachable returns the number of off-diagonal cells holding Unreachable.
func (m *Matrix) CountUnreachable() int {
	count := 0
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			if i != j && math.IsInf(m.At(i, j), 1) {
				count++
			}
		}
	}
	return count
}

// ToRows returns a [][]float64 copy, mainly for JSON and tests.
func (m *Matrix) ToRows() [][]float64 {
	out := make([][]float64, m.Rows)
	for i := range out {
		out[i] = append([]float64(nil), m.Row(i)...)
	}
	return out
}
