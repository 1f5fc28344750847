// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	log "github.com/sirupsen/logrus"
)

// RemoveMissingObs removes, from every dataset, the entries on the
// given axis of the given layer whose total is exactly zero. Removal
// applies to all layers and to the identifier vector for that axis, so
// layers stay shape-congruent. The operation is idempotent: a second
// pass finds nothing left to remove.
func RemoveMissingObs(lg *Liger, layer Layer, axis Axis) (*Liger, error) {
	out := &Liger{VarGenes: lg.VarGenes, CellData: lg.CellData}
	changed := false
	for _, ds := range lg.Datasets {
		nds, removed, err := removeMissingObs(ds, layer, axis)
		if err != nil {
			return nil, err
		}
		if len(removed) > 0 {
			changed = true
			log.Printf("%s: removing %d %s with zero total in %s layer", ds.Name, len(removed), axis, layer)
			if len(removed) < 25 {
				log.Printf("%s: removed %s: %v", ds.Name, axis, removed)
			}
		}
		out.Datasets = append(out.Datasets, nds)
	}
	if changed {
		out.rebuildCellData()
	}
	return out, nil
}

func removeMissingObs(ds *Dataset, layer Layer, axis Axis) (*Dataset, []string, error) {
	m, err := ds.layer(layer)
	if err != nil {
		return nil, nil, err
	}
	var sums []float64
	if axis == Cells {
		sums = rowSums(m)
	} else {
		sums = colSums(m)
	}

	ids := ds.ids(axis)
	axismap := make([]int, len(ids))
	var kept []string
	var removed []string
	for k, id := range ids {
		if sums[k] == 0 {
			axismap[k] = -1
			removed = append(removed, id)
			continue
		}
		axismap[k] = len(kept)
		kept = append(kept, id)
	}
	if len(removed) == 0 {
		return ds, nil, nil
	}

	nds := ds.clone()
	subset := func(layer Layer) {
		m, err := nds.layer(layer)
		if err != nil {
			return
		}
		var sub = m
		if axis == Cells {
			sub = subsetRows(m, axismap, len(kept))
		} else {
			sub = subsetCols(m, axismap, len(kept))
		}
		switch layer {
		case LayerRaw:
			nds.Raw = sub
		case LayerNorm:
			nds.Norm = sub
		case LayerScale:
			nds.Scale = sub
		}
	}
	subset(LayerRaw)
	subset(LayerNorm)
	subset(LayerScale)
	if axis == Cells {
		nds.Barcodes = kept
	} else {
		nds.Genes = kept
	}
	return nds, removed, nil
}
