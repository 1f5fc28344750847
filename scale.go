// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"fmt"
	"math"
)

// ScaleNotCenter restricts each dataset to the selected genes and
// builds the scale layer by dividing each gene's normalized expression
// by its root-mean-square across cells (sum of squares over cells-1).
// The mean is not subtracted: downstream factorization requires
// non-negative input. With removeMissing, cells with zero expression
// across all selected genes are then dropped from every layer.
func ScaleNotCenter(lg *Liger, removeMissing bool) (*Liger, error) {
	varset := make(map[string]bool, len(lg.VarGenes))
	for _, g := range lg.VarGenes {
		varset[g] = true
	}

	out := &Liger{VarGenes: lg.VarGenes, CellData: lg.CellData}
	for _, ds := range lg.Datasets {
		norm, err := ds.layer(LayerNorm)
		if err != nil {
			return nil, ValidationError(fmt.Sprintf("dataset %q has no norm layer; run Normalize and SelectGenes before ScaleNotCenter", ds.Name))
		}
		cells := len(ds.Barcodes)
		if cells < 2 {
			return nil, DegenerateInputError{
				Dataset: ds.Name,
				Detail:  "scaling needs at least two cells",
			}
		}

		colmap := make([]int, len(ds.Genes))
		var kept []string
		for j, g := range ds.Genes {
			if varset[g] {
				colmap[j] = len(kept)
				kept = append(kept, g)
			} else {
				colmap[j] = -1
			}
		}

		nds := ds.clone()
		nds.Genes = kept
		nds.Raw = subsetCols(ds.Raw, colmap, len(kept))
		nds.Norm = subsetCols(norm, colmap, len(kept))

		rms := colSumSquares(nds.Norm)
		for j := range rms {
			rms[j] = math.Sqrt(rms[j] / float64(cells-1))
		}
		// A gene with no stored entries in this dataset has rms 0,
		// but also nothing to divide, so no NaN is produced; the
		// missing filter below is what removes degenerate entries.
		nds.Scale = mapNonZero(nds.Norm, func(_, j int, v float64) float64 { return v / rms[j] })
		out.Datasets = append(out.Datasets, nds)
	}

	if removeMissing {
		var err error
		out, err = RemoveMissingObs(out, LayerScale, Cells)
		if err != nil {
			return nil, err
		}
	}
	out.rebuildCellData()
	return out, nil
}
