// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	CombineUnion     = "union"
	CombineIntersect = "intersect"
)

// SelectGenesOptions configures SelectGenes. Zero values mean the
// documented defaults: VarThresh 0.1, AlphaThresh 0.99, Tol 1e-4, all
// datasets, union combine. VarThresh and NumGenes accept either a
// single value broadcast to every dataset or one value per dataset.
type SelectGenesOptions struct {
	VarThresh   []float64
	AlphaThresh float64
	NumGenes    []int // if set, VarThresh is solved per dataset to hit this count
	Tol         float64
	DatasetsUse []int
	Combine     string
	KeepUnique  bool
	Capitalize  bool
}

// maxThreshIter caps the bisection in optimizeThreshold so a
// pathological tolerance cannot loop forever.
const maxThreshIter = 200

// SelectGenes scores each gene's expression variance against a
// Poisson-noise-corrected expectation and records the genes passing
// both the variance and mean bounds, combined across datasets by union
// or intersection. Per-dataset statistics are independent and computed
// concurrently. The returned aggregate carries the sorted selection in
// VarGenes; non-fatal conditions are returned as SelectionWarnings and
// logged.
func SelectGenes(lg *Liger, opts SelectGenesOptions) (*Liger, []SelectionWarning, error) {
	n := len(lg.Datasets)
	varThresh, err := broadcastFloat(opts.VarThresh, 0.1, n)
	if err != nil {
		return nil, nil, err
	}
	numGenes, err := broadcastInt(opts.NumGenes, n)
	if err != nil {
		return nil, nil, err
	}
	alphaThresh := opts.AlphaThresh
	if alphaThresh == 0 {
		alphaThresh = 0.99
	}
	tol := opts.Tol
	if tol == 0 {
		tol = 0.0001
	}
	combine := opts.Combine
	if combine == "" {
		combine = CombineUnion
	}
	if combine != CombineUnion && combine != CombineIntersect {
		return nil, nil, ValidationError(fmt.Sprintf("unknown combine mode %q", opts.Combine))
	}
	use := datasetsUse(opts.DatasetsUse, n)
	if len(use) == 0 {
		return nil, nil, ValidationError("datasets_use selects no datasets")
	}

	out := &Liger{CellData: lg.CellData}
	out.Datasets = append([]*Dataset(nil), lg.Datasets...)

	// Case folding happens before any statistics or set operation,
	// so cross-species casing differences collapse onto one gene.
	if opts.Capitalize {
		for _, i := range use {
			nds := out.Datasets[i].clone()
			genes := make([]string, len(nds.Genes))
			for k, g := range nds.Genes {
				genes[k] = strings.ToUpper(g)
			}
			nds.Genes = genes
			out.Datasets[i] = nds
		}
	}

	selected := make([][]string, n)
	var warnings []SelectionWarning
	var mtx sync.Mutex
	var wg sync.WaitGroup
	errs := make(chan error, 1)
	for _, i := range use {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			target := -1
			if numGenes != nil {
				target = numGenes[i]
			}
			genes, warning, err := selectDatasetGenes(out.Datasets[i], varThresh[i], alphaThresh, target, tol)
			if err != nil {
				select {
				case errs <- err:
				default:
				}
				return
			}
			selected[i] = genes
			if warning != nil {
				mtx.Lock()
				warnings = append(warnings, *warning)
				mtx.Unlock()
			}
		}()
	}
	wg.Wait()
	go close(errs)
	if err := <-errs; err != nil {
		return nil, nil, err
	}

	var genesUse []string
	for k, i := range use {
		switch {
		case combine == CombineUnion:
			genesUse = unionStrings(genesUse, selected[i])
		case k == 0:
			genesUse = selected[i]
		default:
			genesUse = intersectStrings(genesUse, selected[i])
		}
	}

	if !opts.KeepUnique {
		// A gene must be a measured feature in every dataset to
		// survive, even if it was only selected in some.
		for _, ds := range out.Datasets {
			genesUse = intersectStrings(genesUse, ds.Genes)
		}
	}

	if len(genesUse) == 0 {
		warnings = append(warnings, SelectionWarning{
			Detail: "no genes were selected; lower var_thresh or use combine=union",
		})
	}
	sort.Strings(genesUse)
	out.VarGenes = genesUse

	for _, w := range warnings {
		log.Warn(w.String())
	}
	return out, warnings, nil
}

// selectDatasetGenes computes one dataset's selection. target < 0
// means use varThresh as given; otherwise varThresh is solved by
// bisection to hit the target gene count.
func selectDatasetGenes(ds *Dataset, varThresh, alphaThresh float64, target int, tol float64) ([]string, *SelectionWarning, error) {
	norm, err := ds.layer(LayerNorm)
	if err != nil {
		return nil, nil, ValidationError(fmt.Sprintf("dataset %q has no norm layer; run Normalize before SelectGenes", ds.Name))
	}
	cells, ngenes := norm.Dims()

	trxPerCell := rowSums(ds.Raw)
	invTrx := make([]float64, len(trxPerCell))
	for i, t := range trxPerCell {
		if t == 0 {
			return nil, nil, DegenerateInputError{
				Dataset: ds.Name,
				Detail:  fmt.Sprintf("cell %q has zero total count", ds.Barcodes[i]),
			}
		}
		invTrx[i] = 1 / t
	}
	// Expected noise-to-signal ratio under a multinomial sampling
	// model (Nolan constant).
	nolan := stat.Mean(invTrx, nil)

	geneMean, geneVar := colMeanVar(norm)

	// Bonferroni-corrected two-sided normal upper bound on the mean
	// expression expected under the null of no true variation.
	alphaCorrected := alphaThresh / float64(ngenes)
	z := distuv.UnitNormal.Quantile(1 - alphaCorrected/2)
	meanUpper := make([]float64, ngenes)
	baseLower := make([]float64, ngenes)
	for j := range meanUpper {
		meanUpper[j] = geneMean[j] + z*math.Sqrt(geneMean[j]*nolan/float64(cells))
		baseLower[j] = math.Log10(geneMean[j] * nolan)
	}

	selectedAt := func(thresh float64, j int) bool {
		return geneVar[j]/nolan > meanUpper[j] && math.Log10(geneVar[j]) > baseLower[j]+thresh
	}
	countAt := func(thresh float64) int {
		count := 0
		for j := 0; j < ngenes; j++ {
			if selectedAt(thresh, j) {
				count++
			}
		}
		return count
	}

	var warning *SelectionWarning
	if target >= 0 {
		got := 0
		varThresh, got = optimizeThreshold(countAt, target, tol)
		if got != target {
			warning = &SelectionWarning{
				Dataset: ds.Name,
				Detail: fmt.Sprintf("selected gene count %d differs from requested %d by %d; lower tol or alpha_thresh for better results",
					got, target, got-target),
			}
		}
	}

	var genes []string
	for j := 0; j < ngenes; j++ {
		if selectedAt(varThresh, j) {
			genes = append(genes, ds.Genes[j])
		}
	}
	return genes, warning, nil
}

// optimizeThreshold finds a variance threshold in [0, 1.5] whose
// selected gene count is as close as possible to target. The count is
// monotone non-increasing and piecewise constant in the threshold, so
// plain bisection converges deterministically; the iteration cap fails
// closed instead of looping on a degenerate tolerance.
func optimizeThreshold(count func(float64) int, target int, tol float64) (float64, int) {
	lo, hi := 0.0, 1.5
	if c := count(lo); c <= target {
		return lo, c
	}
	if c := count(hi); c >= target {
		return hi, c
	}
	// invariant: count(lo) > target > count(hi)
	for iter := 0; hi-lo > tol && iter < maxThreshIter; iter++ {
		mid := (lo + hi) / 2
		c := count(mid)
		switch {
		case c == target:
			return mid, c
		case c > target:
			lo = mid
		default:
			hi = mid
		}
	}
	// clo > target > chi here; report the boundary with the
	// smaller deviation.
	clo, chi := count(lo), count(hi)
	if target-chi <= clo-target {
		return hi, chi
	}
	return lo, clo
}

func datasetsUse(use []int, n int) []int {
	if use == nil {
		use = make([]int, n)
		for i := range use {
			use[i] = i
		}
		return use
	}
	seen := make(map[int]bool)
	var out []int
	for _, i := range use {
		if i >= 0 && i < n && !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func broadcastFloat(vals []float64, def float64, n int) ([]float64, error) {
	switch len(vals) {
	case 0:
		vals = make([]float64, n)
		for i := range vals {
			vals[i] = def
		}
		return vals, nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	case n:
		return vals, nil
	}
	return nil, ValidationError(fmt.Sprintf("got %d var_thresh values for %d datasets", len(vals), n))
}

func broadcastInt(vals []int, n int) ([]int, error) {
	switch len(vals) {
	case 0:
		return nil, nil
	case 1:
		out := make([]int, n)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	case n:
		return vals, nil
	}
	return nil, ValidationError(fmt.Sprintf("got %d num_genes values for %d datasets", len(vals), n))
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func intersectStrings(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	var out []string
	for _, s := range a {
		if inB[s] {
			out = append(out, s)
		}
	}
	return out
}
