// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"sort"

	log "github.com/sirupsen/logrus"
)

// MergeSparseAll combines datasets into a single dataset whose gene
// axis is the sorted union of all input gene identifiers and whose
// cell axis is the dataset-by-dataset concatenation of all input
// barcodes. Genes a dataset did not measure are zero-filled. A cell
// identifier repeated anywhere in the input is a
// DuplicateIdentifierError.
func MergeSparseAll(datasets []*Dataset) (*Dataset, error) {
	if err := checkUniqueBarcodes(datasets); err != nil {
		return nil, err
	}
	union := geneUnion(datasets)
	pos := make(map[string]int, len(union))
	for j, g := range union {
		pos[g] = j
	}

	var barcodes []string
	var ri, ci []int
	var vs []float64
	offset := 0
	for _, ds := range datasets {
		colmap := make([]int, len(ds.Genes))
		for j, g := range ds.Genes {
			colmap[j] = pos[g]
		}
		offs := offset
		ds.Raw.DoNonZero(func(i, j int, v float64) {
			ri = append(ri, offs+i)
			ci = append(ci, colmap[j])
			vs = append(vs, v)
		})
		barcodes = append(barcodes, ds.Barcodes...)
		offset += len(ds.Barcodes)
	}

	return &Dataset{
		Name:     "merged",
		DataType: datasets[0].DataType,
		Barcodes: barcodes,
		Genes:    union,
		Raw:      csrFromTriplets(offset, len(union), ri, ci, vs),
	}, nil
}

// takeGeneUnion merges the datasets on the union gene axis, optionally
// prunes genes with zero total count across the merged matrix, and
// splits the result back into per-dataset slices so that every dataset
// ends up with a congruent gene axis while remaining a separate
// entity. Cell order within each dataset is preserved.
func takeGeneUnion(datasets []*Dataset, removeMissing bool) ([]*Dataset, error) {
	merged, err := MergeSparseAll(datasets)
	if err != nil {
		return nil, err
	}

	if removeMissing {
		sums := colSums(merged.Raw)
		colmap := make([]int, len(merged.Genes))
		var kept []string
		var pruned []string
		for j, g := range merged.Genes {
			if sums[j] == 0 {
				colmap[j] = -1
				pruned = append(pruned, g)
				continue
			}
			colmap[j] = len(kept)
			kept = append(kept, g)
		}
		if len(pruned) > 0 {
			log.Printf("removing %d genes not expressed in any cells across merged datasets", len(pruned))
			if len(pruned) < 25 {
				log.Printf("removed genes: %v", pruned)
			}
			merged = merged.clone()
			merged.Genes = kept
			merged.Raw = subsetCols(merged.Raw, colmap, len(kept))
		}
	}

	out := make([]*Dataset, len(datasets))
	offset := 0
	for i, ds := range datasets {
		rowmap := make([]int, len(merged.Barcodes))
		for k := range rowmap {
			rowmap[k] = -1
		}
		for k := 0; k < len(ds.Barcodes); k++ {
			rowmap[offset+k] = k
		}
		nds := ds.clone()
		nds.Genes = merged.Genes
		nds.Raw = subsetRows(merged.Raw, rowmap, len(ds.Barcodes))
		nds.Norm, nds.Scale = nil, nil
		out[i] = nds
		offset += len(ds.Barcodes)
	}
	return out, nil
}

func geneUnion(datasets []*Dataset) []string {
	seen := make(map[string]bool)
	var union []string
	for _, ds := range datasets {
		for _, g := range ds.Genes {
			if !seen[g] {
				seen[g] = true
				union = append(union, g)
			}
		}
	}
	sort.Strings(union)
	return union
}
