// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import "fmt"

// ValidationError reports a structural contract violation: missing
// identifiers, a layer whose shape disagrees with its dataset, or an
// unknown layer name. It always aborts the stage that detects it.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// DuplicateIdentifierError reports a cell identifier that occurs more
// than once across the whole aggregate. Cell names must be unique
// globally; gene names need not be (upstream ingestion disambiguates
// same-named genes with numeric suffixes).
type DuplicateIdentifierError struct {
	ID      string
	Dataset string
}

func (e DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("cell identifier %q in dataset %q is repeated across datasets; all cell names must be unique", e.ID, e.Dataset)
}

// DegenerateInputError reports input that would force a non-finite
// result, e.g. a zero-count cell reaching normalization. The mandatory
// missing-observation filters prevent this in the normal pipeline; if
// it occurs anyway it is fatal rather than letting NaN/Inf propagate.
type DegenerateInputError struct {
	Dataset string
	Detail  string
}

func (e DegenerateInputError) Error() string {
	if e.Dataset == "" {
		return e.Detail
	}
	return e.Dataset + ": " + e.Detail
}

// SelectionWarning reports a non-fatal gene selection condition, such
// as the threshold optimizer missing the requested gene count or an
// empty final gene set. The pipeline continues; downstream stages
// receiving degenerate input are expected to fail on their own terms.
type SelectionWarning struct {
	Dataset string
	Detail  string
}

func (w SelectionWarning) String() string {
	if w.Dataset == "" {
		return w.Detail
	}
	return w.Dataset + ": " + w.Detail
}
