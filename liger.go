// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package liger preprocesses collections of sparse single-cell count
// matrices for joint non-negative factorization: it harmonizes gene
// vocabularies across datasets, normalizes per-cell library size,
// selects informative genes with a variance-over-mean model, and
// scales the selected submatrix by root-mean-square without centering.
//
// Reading raw storage formats and the factorization itself are
// external collaborators; this package consumes and produces gob
// streams of already-decoded datasets (see gob.go).
package liger

// CellMeta holds per-cell statistics derived from the raw layer. It is
// rebuilt wholesale whenever a stage changes dataset shape.
type CellMeta struct {
	Barcode string
	Dataset string
	NUMI    float64
	NGene   int
}

// Liger is the aggregate threaded through the pipeline stages. Dataset
// order is input order and determines output ordering. Stages return a
// new aggregate with Datasets replaced wholesale rather than mutating
// the one they were given.
type Liger struct {
	Datasets []*Dataset
	VarGenes []string // sorted; empty until SelectGenes runs
	CellData []CellMeta
}

// CreateOptions configures CreateLiger. TakeGeneUnion fills every
// dataset out to the union of all gene identifiers, zero-filling
// genes a dataset did not measure. RemoveMissing drops cells with no
// expression and genes expressed in no cell (with TakeGeneUnion, genes
// expressed in no dataset).
type CreateOptions struct {
	TakeGeneUnion bool
	RemoveMissing bool
}

// CreateLiger validates the input datasets and assembles the
// aggregate. Cell identifiers must be unique across all datasets.
func CreateLiger(datasets []*Dataset, opts CreateOptions) (*Liger, error) {
	if len(datasets) == 0 {
		return nil, ValidationError("at least one dataset is required")
	}
	for _, ds := range datasets {
		if err := ds.validate(); err != nil {
			return nil, err
		}
	}
	if err := checkUniqueBarcodes(datasets); err != nil {
		return nil, err
	}

	var err error
	if opts.TakeGeneUnion {
		datasets, err = takeGeneUnion(datasets, opts.RemoveMissing)
		if err != nil {
			return nil, err
		}
	}

	lg := &Liger{Datasets: datasets}
	if opts.RemoveMissing {
		lg, err = RemoveMissingObs(lg, LayerRaw, Cells)
		if err != nil {
			return nil, err
		}
		if !opts.TakeGeneUnion {
			lg, err = RemoveMissingObs(lg, LayerRaw, Genes)
			if err != nil {
				return nil, err
			}
		}
	}
	lg.rebuildCellData()
	return lg, nil
}

func checkUniqueBarcodes(datasets []*Dataset) error {
	seen := make(map[string]bool)
	for _, ds := range datasets {
		for _, bc := range ds.Barcodes {
			if seen[bc] {
				return DuplicateIdentifierError{ID: bc, Dataset: ds.Name}
			}
			seen[bc] = true
		}
	}
	return nil
}

func (lg *Liger) rebuildCellData() {
	// allocate fresh: the slice may be shared with the aggregate this
	// one was derived from
	lg.CellData = make([]CellMeta, 0, len(lg.CellData))
	for _, ds := range lg.Datasets {
		numi := rowSums(ds.Raw)
		ngene := make([]int, len(ds.Barcodes))
		ds.Raw.DoNonZero(func(i, _ int, _ float64) { ngene[i]++ })
		for i, bc := range ds.Barcodes {
			lg.CellData = append(lg.CellData, CellMeta{
				Barcode: bc,
				Dataset: ds.Name,
				NUMI:    numi[i],
				NGene:   ngene[i],
			})
		}
	}
}
