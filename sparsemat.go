// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"sort"

	"github.com/james-bowman/sparse"
)

// csrFromTriplets builds a CSR matrix from (row, col, value) triplets
// in any order. Explicit zeros are dropped so that a stored entry
// always means a nonzero observation.
func csrFromTriplets(rows, cols int, ri, ci []int, vals []float64) *sparse.CSR {
	ord := make([]int, 0, len(vals))
	for k, v := range vals {
		if v != 0 {
			ord = append(ord, k)
		}
	}
	sort.Slice(ord, func(a, b int) bool {
		ka, kb := ord[a], ord[b]
		if ri[ka] != ri[kb] {
			return ri[ka] < ri[kb]
		}
		return ci[ka] < ci[kb]
	})
	ia := make([]int, rows+1)
	ja := make([]int, 0, len(ord))
	data := make([]float64, 0, len(ord))
	row := 0
	for _, k := range ord {
		for row < ri[k] {
			row++
			ia[row] = len(ja)
		}
		ja = append(ja, ci[k])
		data = append(data, vals[k])
	}
	for row < rows {
		row++
		ia[row] = len(ja)
	}
	return sparse.NewCSR(rows, cols, ia, ja, data)
}

// mapNonZero returns a new matrix of the same shape with f applied to
// every stored entry. f must not return zero for a nonzero input.
func mapNonZero(m *sparse.CSR, f func(i, j int, v float64) float64) *sparse.CSR {
	rows, cols := m.Dims()
	ia := make([]int, rows+1)
	ja := make([]int, 0, m.NNZ())
	data := make([]float64, 0, m.NNZ())
	row := 0
	m.DoNonZero(func(i, j int, v float64) {
		for row < i {
			row++
			ia[row] = len(ja)
		}
		ja = append(ja, j)
		data = append(data, f(i, j, v))
	})
	for row < rows {
		row++
		ia[row] = len(ja)
	}
	return sparse.NewCSR(rows, cols, ia, ja, data)
}

// subsetRows keeps (and renumbers) the rows for which rowmap[i] >= 0.
func subsetRows(m *sparse.CSR, rowmap []int, newRows int) *sparse.CSR {
	_, cols := m.Dims()
	var ri, ci []int
	var vs []float64
	m.DoNonZero(func(i, j int, v float64) {
		if rowmap[i] < 0 {
			return
		}
		ri = append(ri, rowmap[i])
		ci = append(ci, j)
		vs = append(vs, v)
	})
	return csrFromTriplets(newRows, cols, ri, ci, vs)
}

// subsetCols keeps (and renumbers) the columns for which colmap[j] >= 0.
func subsetCols(m *sparse.CSR, colmap []int, newCols int) *sparse.CSR {
	rows, _ := m.Dims()
	var ri, ci []int
	var vs []float64
	m.DoNonZero(func(i, j int, v float64) {
		if colmap[j] < 0 {
			return
		}
		ri = append(ri, i)
		ci = append(ci, colmap[j])
		vs = append(vs, v)
	})
	return csrFromTriplets(rows, newCols, ri, ci, vs)
}

func rowSums(m *sparse.CSR) []float64 {
	rows, _ := m.Dims()
	sums := make([]float64, rows)
	m.DoNonZero(func(i, _ int, v float64) { sums[i] += v })
	return sums
}

func colSums(m *sparse.CSR) []float64 {
	_, cols := m.Dims()
	sums := make([]float64, cols)
	m.DoNonZero(func(_, j int, v float64) { sums[j] += v })
	return sums
}

// colMeanVar returns the per-column mean and population variance,
// counting implicit zeros.
func colMeanVar(m *sparse.CSR) (mean, variance []float64) {
	rows, cols := m.Dims()
	mean = make([]float64, cols)
	variance = make([]float64, cols)
	m.DoNonZero(func(_, j int, v float64) {
		mean[j] += v
		variance[j] += v * v
	})
	n := float64(rows)
	for j := range mean {
		mean[j] /= n
		variance[j] = variance[j]/n - mean[j]*mean[j]
	}
	return mean, variance
}

func colSumSquares(m *sparse.CSR) []float64 {
	_, cols := m.Dims()
	ss := make([]float64, cols)
	m.DoNonZero(func(_, j int, v float64) { ss[j] += v * v })
	return ss
}

// denseData flattens m into a row-major float64 slice.
func denseData(m *sparse.CSR) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, rows*cols)
	m.DoNonZero(func(i, j int, v float64) { out[i*cols+j] = v })
	return out
}
