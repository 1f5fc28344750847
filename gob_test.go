// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"bytes"
	"encoding/gob"

	"github.com/klauspost/pgzip"
	"gopkg.in/check.v1"
)

type gobSuite struct{}

var _ = check.Suite(&gobSuite{})

func (s *gobSuite) roundTripFixture(c *check.C) *Liger {
	ds := newTestDataset("d1", []string{"c1", "c2", "c3"}, []string{"g1", "g2"},
		[][]float64{
			{2, 2},
			{0, 4},
			{3, 1},
		})
	lg, err := CreateLiger([]*Dataset{ds}, CreateOptions{RemoveMissing: true})
	c.Assert(err, check.IsNil)
	lg, err = Normalize(lg)
	c.Assert(err, check.IsNil)
	lg.VarGenes = []string{"g1", "g2"}
	lg, err = ScaleNotCenter(lg, true)
	c.Assert(err, check.IsNil)
	return lg
}

func (s *gobSuite) checkEqual(c *check.C, got, want *Liger) {
	c.Assert(got.Datasets, check.HasLen, len(want.Datasets))
	for i, ds := range want.Datasets {
		gds := got.Datasets[i]
		c.Check(gds.Name, check.Equals, ds.Name)
		c.Check(gds.DataType, check.Equals, ds.DataType)
		c.Check(gds.Barcodes, check.DeepEquals, ds.Barcodes)
		c.Check(gds.Genes, check.DeepEquals, ds.Genes)
		c.Check(denseData(gds.Raw), check.DeepEquals, denseData(ds.Raw))
		c.Check(denseData(gds.Norm), check.DeepEquals, denseData(ds.Norm))
		c.Check(denseData(gds.Scale), check.DeepEquals, denseData(ds.Scale))
	}
	c.Check(got.VarGenes, check.DeepEquals, want.VarGenes)
	c.Check(got.CellData, check.DeepEquals, want.CellData)
}

func (s *gobSuite) TestRoundTrip(c *check.C) {
	lg := s.roundTripFixture(c)
	var buf bytes.Buffer
	c.Assert(WriteLiger(&buf, lg), check.IsNil)
	got, err := ReadLiger(&buf, false)
	c.Assert(err, check.IsNil)
	s.checkEqual(c, got, lg)
}

func (s *gobSuite) TestRoundTripGzip(c *check.C) {
	lg := s.roundTripFixture(c)
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	c.Assert(WriteLiger(zw, lg), check.IsNil)
	c.Assert(zw.Close(), check.IsNil)
	got, err := ReadLiger(&buf, true)
	c.Assert(err, check.IsNil)
	s.checkEqual(c, got, lg)
}

func (s *gobSuite) TestMultipleEntries(c *check.C) {
	// An ingestion writer streams one entry per dataset through a
	// single encoder; the reader concatenates them.
	d1 := newTestDataset("d1", []string{"c1"}, []string{"g1"}, [][]float64{{1}})
	d2 := newTestDataset("d2", []string{"c2"}, []string{"g1"}, [][]float64{{2}})
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	c.Assert(enc.Encode(LigerEntry{Datasets: []DatasetEntry{newDatasetEntry(d1)}}), check.IsNil)
	c.Assert(enc.Encode(LigerEntry{
		Datasets: []DatasetEntry{newDatasetEntry(d2)},
		VarGenes: []string{"g1"},
	}), check.IsNil)
	got, err := ReadLiger(&buf, false)
	c.Assert(err, check.IsNil)
	c.Assert(got.Datasets, check.HasLen, 2)
	c.Check(got.Datasets[0].Name, check.Equals, "d1")
	c.Check(got.Datasets[1].Name, check.Equals, "d2")
	c.Check(got.VarGenes, check.DeepEquals, []string{"g1"})
}

func (s *gobSuite) TestDigestMismatch(c *check.C) {
	ds := newTestDataset("d1", []string{"c1"}, []string{"g1", "g2"}, [][]float64{{1, 2}})
	ent := newMatrixEntry(ds.Raw)
	ent.Values[0] = 9
	_, err := ent.matrix()
	c.Check(err, check.ErrorMatches, `matrix digest mismatch:.*`)

	// and through the stream
	var buf bytes.Buffer
	de := newDatasetEntry(ds)
	de.Raw.Values[0] = 9
	c.Assert(gob.NewEncoder(&buf).Encode(LigerEntry{Datasets: []DatasetEntry{de}}), check.IsNil)
	_, err = ReadLiger(&buf, false)
	c.Check(err, check.ErrorMatches, `d1: raw: matrix digest mismatch:.*`)
}

func (s *gobSuite) TestEmptyInput(c *check.C) {
	_, err := ReadLiger(&bytes.Buffer{}, false)
	c.Check(err, check.NotNil)
}
