// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import "fmt"

// Normalize builds each dataset's norm layer by dividing every cell's
// raw counts by that cell's total count, so each cell's normalized
// vector sums to 1. Cells with zero total are removed from the raw
// layer first; one surviving anyway is a DegenerateInputError rather
// than a NaN/Inf layer.
func Normalize(lg *Liger) (*Liger, error) {
	lg, err := RemoveMissingObs(lg, LayerRaw, Cells)
	if err != nil {
		return nil, err
	}
	out := &Liger{VarGenes: lg.VarGenes, CellData: lg.CellData}
	for _, ds := range lg.Datasets {
		sums := rowSums(ds.Raw)
		for i, s := range sums {
			if s == 0 {
				return nil, DegenerateInputError{
					Dataset: ds.Name,
					Detail:  fmt.Sprintf("cell %q has zero total count; cannot normalize", ds.Barcodes[i]),
				}
			}
		}
		nds := ds.clone()
		nds.Norm = mapNonZero(ds.Raw, func(i, _ int, v float64) float64 { return v / sums[i] })
		out.Datasets = append(out.Datasets, nds)
	}
	return out, nil
}
