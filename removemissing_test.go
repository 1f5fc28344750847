// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"gopkg.in/check.v1"
)

type removeMissingSuite struct{}

var _ = check.Suite(&removeMissingSuite{})

func (s *removeMissingSuite) TestRemoveMissingCells(c *check.C) {
	ds := newTestDataset("d1", []string{"c1", "c2", "c3"}, []string{"g1", "g2"},
		[][]float64{
			{1, 2},
			{0, 0},
			{3, 0},
		})
	lg := &Liger{Datasets: []*Dataset{ds}}
	lg, err := RemoveMissingObs(lg, LayerRaw, Cells)
	c.Assert(err, check.IsNil)
	c.Check(lg.Datasets[0].Barcodes, check.DeepEquals, []string{"c1", "c3"})
	c.Check(lg.Datasets[0].Genes, check.DeepEquals, []string{"g1", "g2"})
	denseEquals(c, lg.Datasets[0].Raw, [][]float64{
		{1, 2},
		{3, 0},
	})
}

func (s *removeMissingSuite) TestRemoveMissingGenes(c *check.C) {
	ds := newTestDataset("d1", []string{"c1", "c2"}, []string{"g1", "g2", "g3"},
		[][]float64{
			{1, 0, 2},
			{3, 0, 0},
		})
	lg := &Liger{Datasets: []*Dataset{ds}}
	lg, err := RemoveMissingObs(lg, LayerRaw, Genes)
	c.Assert(err, check.IsNil)
	c.Check(lg.Datasets[0].Genes, check.DeepEquals, []string{"g1", "g3"})
	denseEquals(c, lg.Datasets[0].Raw, [][]float64{
		{1, 2},
		{3, 0},
	})
}

func (s *removeMissingSuite) TestAllLayersStayCongruent(c *check.C) {
	ds := newTestDataset("d1", []string{"c1", "c2", "c3"}, []string{"g1", "g2"},
		[][]float64{
			{2, 2},
			{0, 0},
			{1, 3},
		})
	ds.Norm = mapNonZero(ds.Raw, func(_, _ int, v float64) float64 { return v / 4 })
	lg, err := RemoveMissingObs(&Liger{Datasets: []*Dataset{ds}}, LayerRaw, Cells)
	c.Assert(err, check.IsNil)
	nds := lg.Datasets[0]
	c.Check(nds.Barcodes, check.DeepEquals, []string{"c1", "c3"})
	rows, cols := nds.Norm.Dims()
	c.Check(rows, check.Equals, 2)
	c.Check(cols, check.Equals, 2)
	denseEquals(c, nds.Norm, [][]float64{
		{0.5, 0.5},
		{0.25, 0.75},
	})
}

func (s *removeMissingSuite) TestIdempotent(c *check.C) {
	ds := newTestDataset("d1", []string{"c1", "c2", "c3"}, []string{"g1", "g2", "g3"},
		[][]float64{
			{1, 0, 0},
			{0, 0, 0},
			{2, 0, 3},
		})
	lg := &Liger{Datasets: []*Dataset{ds}}
	once, err := RemoveMissingObs(lg, LayerRaw, Cells)
	c.Assert(err, check.IsNil)
	once, err = RemoveMissingObs(once, LayerRaw, Genes)
	c.Assert(err, check.IsNil)

	twice, err := RemoveMissingObs(once, LayerRaw, Cells)
	c.Assert(err, check.IsNil)
	twice, err = RemoveMissingObs(twice, LayerRaw, Genes)
	c.Assert(err, check.IsNil)

	c.Check(twice.Datasets[0].Barcodes, check.DeepEquals, once.Datasets[0].Barcodes)
	c.Check(twice.Datasets[0].Genes, check.DeepEquals, once.Datasets[0].Genes)
	c.Check(denseData(twice.Datasets[0].Raw), check.DeepEquals, denseData(once.Datasets[0].Raw))
	c.Check(twice.CellData, check.DeepEquals, once.CellData)
}

func (s *removeMissingSuite) TestMissingLayer(c *check.C) {
	ds := newTestDataset("d1", []string{"c1"}, []string{"g1"}, [][]float64{{1}})
	_, err := RemoveMissingObs(&Liger{Datasets: []*Dataset{ds}}, LayerScale, Cells)
	c.Check(err, check.FitsTypeOf, ValidationError(""))
}
