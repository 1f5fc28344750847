// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

// Layer names a derived representation of a dataset's count matrix.
type Layer string

const (
	LayerRaw   Layer = "raw"
	LayerNorm  Layer = "norm"
	LayerScale Layer = "scale"
)

// Axis names one side of a count matrix. Rows are cells and columns
// are genes, everywhere in this package; no component may assume the
// transposed convention.
type Axis int

const (
	Cells Axis = iota
	Genes
)

func (a Axis) String() string {
	if a == Cells {
		return "cells"
	}
	return "genes"
}

// Dataset is one sample's count matrix plus its identifier vectors and
// derived layers. All layers share the same shape: one row per entry
// of Barcodes, one column per entry of Genes.
type Dataset struct {
	Name     string
	DataType string // e.g. "Gene Expression", "Chromatin Accessibility"
	Barcodes []string
	Genes    []string

	Raw   *sparse.CSR
	Norm  *sparse.CSR
	Scale *sparse.CSR
}

func (ds *Dataset) layer(name Layer) (*sparse.CSR, error) {
	var m *sparse.CSR
	switch name {
	case LayerRaw:
		m = ds.Raw
	case LayerNorm:
		m = ds.Norm
	case LayerScale:
		m = ds.Scale
	default:
		return nil, ValidationError(fmt.Sprintf("unknown layer %q", name))
	}
	if m == nil {
		return nil, ValidationError(fmt.Sprintf("dataset %q has no %s layer", ds.Name, name))
	}
	return m, nil
}

// clone returns a shallow copy. Matrices and identifier slices are
// shared until a stage replaces them, and are never mutated in place.
func (ds *Dataset) clone() *Dataset {
	out := *ds
	return &out
}

func (ds *Dataset) ids(axis Axis) []string {
	if axis == Cells {
		return ds.Barcodes
	}
	return ds.Genes
}

func (ds *Dataset) validate() error {
	if ds.Raw == nil {
		return ValidationError(fmt.Sprintf("dataset %q has no raw layer", ds.Name))
	}
	if len(ds.Barcodes) == 0 || len(ds.Genes) == 0 {
		return ValidationError(fmt.Sprintf("dataset %q must have both cell (barcode) and gene names", ds.Name))
	}
	for _, layer := range []Layer{LayerRaw, LayerNorm, LayerScale} {
		m, err := ds.layer(layer)
		if err != nil {
			continue
		}
		rows, cols := m.Dims()
		if rows != len(ds.Barcodes) || cols != len(ds.Genes) {
			return ValidationError(fmt.Sprintf("dataset %q %s layer is %dx%d, want %dx%d",
				ds.Name, layer, rows, cols, len(ds.Barcodes), len(ds.Genes)))
		}
	}
	return nil
}
