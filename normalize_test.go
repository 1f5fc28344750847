// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"math"

	"gopkg.in/check.v1"
)

type normalizeSuite struct{}

var _ = check.Suite(&normalizeSuite{})

func (s *normalizeSuite) TestNormalize(c *check.C) {
	ds := newTestDataset("d1", []string{"c1", "c2", "c3"}, []string{"g1", "g2", "g3"},
		[][]float64{
			{1, 1, 2},
			{0, 5, 0},
			{2, 0, 6},
		})
	lg, err := Normalize(&Liger{Datasets: []*Dataset{ds}})
	c.Assert(err, check.IsNil)
	norm := lg.Datasets[0].Norm
	c.Assert(norm, check.NotNil)
	for i, sum := range rowSums(norm) {
		if math.Abs(sum-1) > 1e-12 {
			c.Errorf("cell %d: normalized sum %v, want 1", i, sum)
		}
	}
	denseEquals(c, norm, [][]float64{
		{0.25, 0.25, 0.5},
		{0, 1, 0},
		{0.25, 0, 0.75},
	})
	// raw layer untouched
	c.Check(lg.Datasets[0].Raw.At(0, 2), check.Equals, 2.0)
}

func (s *normalizeSuite) TestZeroCountCellRemovedFirst(c *check.C) {
	ds := newTestDataset("d1", []string{"c1", "c2", "c3"}, []string{"g1", "g2"},
		[][]float64{
			{3, 1},
			{0, 0},
			{1, 1},
		})
	lg, err := Normalize(&Liger{Datasets: []*Dataset{ds}})
	c.Assert(err, check.IsNil)
	// the zero-count cell never reaches the divide
	c.Check(lg.Datasets[0].Barcodes, check.DeepEquals, []string{"c1", "c3"})
	for _, sum := range rowSums(lg.Datasets[0].Norm) {
		c.Check(sum, check.Not(check.Equals), 0.0)
	}
	norm := lg.Datasets[0].Norm
	norm.DoNonZero(func(_, _ int, v float64) {
		c.Check(math.IsNaN(v) || math.IsInf(v, 0), check.Equals, false)
	})
}

func (s *normalizeSuite) TestNormalizePreservesVarGenes(c *check.C) {
	ds := newTestDataset("d1", []string{"c1", "c2"}, []string{"g1", "g2"},
		[][]float64{{1, 1}, {2, 2}})
	lg := &Liger{Datasets: []*Dataset{ds}, VarGenes: []string{"g1"}}
	lg, err := Normalize(lg)
	c.Assert(err, check.IsNil)
	c.Check(lg.VarGenes, check.DeepEquals, []string{"g1"})
}
