// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/james-bowman/sparse"
	"github.com/klauspost/pgzip"
	"golang.org/x/crypto/blake2b"
)

// MatrixEntry is the interchange form of one sparse layer: dimensions
// plus nonzero triplets, with a blake2b digest verified on decode.
type MatrixEntry struct {
	Rows, Cols int
	RowIdx     []int32
	ColIdx     []int32
	Values     []float64
	Blake2b    [blake2b.Size256]byte
}

// DatasetEntry is the interchange form of one dataset. Norm and Scale
// are nil until the corresponding stages have run.
type DatasetEntry struct {
	Name     string
	DataType string
	Barcodes []string
	Genes    []string
	Raw      *MatrixEntry
	Norm     *MatrixEntry
	Scale    *MatrixEntry
}

// LigerEntry is one element of a gob stream. The ingestion collaborator
// writes entries carrying raw datasets; the preprocess command writes a
// single entry carrying all layers, the selected genes, and the cell
// metadata.
type LigerEntry struct {
	Datasets []DatasetEntry
	VarGenes []string
	CellData []CellMeta
}

func newMatrixEntry(m *sparse.CSR) *MatrixEntry {
	if m == nil {
		return nil
	}
	rows, cols := m.Dims()
	e := &MatrixEntry{
		Rows:   rows,
		Cols:   cols,
		RowIdx: make([]int32, 0, m.NNZ()),
		ColIdx: make([]int32, 0, m.NNZ()),
		Values: make([]float64, 0, m.NNZ()),
	}
	m.DoNonZero(func(i, j int, v float64) {
		e.RowIdx = append(e.RowIdx, int32(i))
		e.ColIdx = append(e.ColIdx, int32(j))
		e.Values = append(e.Values, v)
	})
	e.Blake2b = e.digest()
	return e
}

func (e *MatrixEntry) digest() [blake2b.Size256]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	binary.Write(h, binary.LittleEndian, int64(e.Rows))
	binary.Write(h, binary.LittleEndian, int64(e.Cols))
	binary.Write(h, binary.LittleEndian, e.RowIdx)
	binary.Write(h, binary.LittleEndian, e.ColIdx)
	binary.Write(h, binary.LittleEndian, e.Values)
	var sum [blake2b.Size256]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func (e *MatrixEntry) matrix() (*sparse.CSR, error) {
	if e == nil {
		return nil, nil
	}
	if got := e.digest(); !bytes.Equal(got[:], e.Blake2b[:]) {
		return nil, fmt.Errorf("matrix digest mismatch: stored %x, computed %x", e.Blake2b, got)
	}
	ri := make([]int, len(e.RowIdx))
	ci := make([]int, len(e.ColIdx))
	for k := range e.RowIdx {
		ri[k] = int(e.RowIdx[k])
		ci[k] = int(e.ColIdx[k])
	}
	return csrFromTriplets(e.Rows, e.Cols, ri, ci, e.Values), nil
}

func newDatasetEntry(ds *Dataset) DatasetEntry {
	return DatasetEntry{
		Name:     ds.Name,
		DataType: ds.DataType,
		Barcodes: ds.Barcodes,
		Genes:    ds.Genes,
		Raw:      newMatrixEntry(ds.Raw),
		Norm:     newMatrixEntry(ds.Norm),
		Scale:    newMatrixEntry(ds.Scale),
	}
}

func (e DatasetEntry) dataset() (*Dataset, error) {
	ds := &Dataset{
		Name:     e.Name,
		DataType: e.DataType,
		Barcodes: e.Barcodes,
		Genes:    e.Genes,
	}
	var err error
	if ds.Raw, err = e.Raw.matrix(); err != nil {
		return nil, fmt.Errorf("%s: raw: %w", e.Name, err)
	}
	if ds.Norm, err = e.Norm.matrix(); err != nil {
		return nil, fmt.Errorf("%s: norm: %w", e.Name, err)
	}
	if ds.Scale, err = e.Scale.matrix(); err != nil {
		return nil, fmt.Errorf("%s: scale: %w", e.Name, err)
	}
	return ds, ds.validate()
}

// WriteLiger gob-encodes the aggregate as a single LigerEntry.
func WriteLiger(w io.Writer, lg *Liger) error {
	ent := LigerEntry{
		VarGenes: lg.VarGenes,
		CellData: lg.CellData,
	}
	for _, ds := range lg.Datasets {
		ent.Datasets = append(ent.Datasets, newDatasetEntry(ds))
	}
	return gob.NewEncoder(w).Encode(ent)
}

// ReadLiger decodes a stream of LigerEntry values until EOF,
// concatenating datasets in stream order. Matrix digests are verified;
// a mismatch is a decode error.
func ReadLiger(rdr io.Reader, gz bool) (*Liger, error) {
	if gz {
		zrdr, err := pgzip.NewReader(bufio.NewReaderSize(rdr, 1<<20))
		if err != nil {
			return nil, err
		}
		defer zrdr.Close()
		rdr = zrdr
	}
	lg := &Liger{}
	dec := gob.NewDecoder(bufio.NewReaderSize(rdr, 1<<20))
	for {
		var ent LigerEntry
		err := dec.Decode(&ent)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("gob decode: %w", err)
		}
		for _, de := range ent.Datasets {
			ds, err := de.dataset()
			if err != nil {
				return nil, err
			}
			lg.Datasets = append(lg.Datasets, ds)
		}
		if len(ent.VarGenes) > 0 {
			lg.VarGenes = ent.VarGenes
		}
		if len(ent.CellData) > 0 {
			lg.CellData = ent.CellData
		}
	}
	if len(lg.Datasets) == 0 {
		return nil, fmt.Errorf("input contains no datasets")
	}
	return lg, nil
}
