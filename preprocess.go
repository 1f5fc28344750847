// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

// preprocessor runs the whole pipeline: create aggregate, normalize,
// select variable genes, scale. Input is a gob stream of raw datasets
// from the ingestion collaborator; output is a single preprocessed
// aggregate for the factorization collaborator. Either side is
// pgzip-compressed when the filename ends in .gz.
type preprocessor struct {
	varThresh     float64
	alphaThresh   float64
	numGenes      int
	tol           float64
	datasetsUse   string
	combine       string
	keepUnique    bool
	capitalize    bool
	geneUnion     bool
	removeMissing bool
}

func (cmd *preprocessor) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputFilename := flags.String("i", "-", "input `file`")
	outputFilename := flags.String("o", "-", "output `file`")
	flags.Float64Var(&cmd.varThresh, "var-thresh", 0.1, "select genes with expression variance more than `T` above the Poisson expectation")
	flags.Float64Var(&cmd.alphaThresh, "alpha-thresh", 0.99, "significance `level` for the expected-mean upper bound")
	flags.IntVar(&cmd.numGenes, "num-genes", -1, "solve var-thresh per dataset to select `N` genes")
	flags.Float64Var(&cmd.tol, "tol", 0.0001, "threshold solve `tolerance`")
	flags.StringVar(&cmd.datasetsUse, "datasets-use", "", "comma-separated dataset `indices` to use for gene selection (default all)")
	flags.StringVar(&cmd.combine, "combine", "union", "combine selected genes across datasets by `union` or intersect")
	flags.BoolVar(&cmd.keepUnique, "keep-unique", false, "keep selected genes that are not measured in every dataset")
	flags.BoolVar(&cmd.capitalize, "capitalize", false, "uppercase gene names to match homologous genes across species")
	flags.BoolVar(&cmd.geneUnion, "gene-union", false, "fill datasets out to the union of genes across all datasets")
	flags.BoolVar(&cmd.removeMissing, "remove-missing", true, "remove cells/genes with no expression")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	var input io.ReadCloser
	if *inputFilename == "-" {
		input = ioutil.NopCloser(stdin)
	} else {
		input, err = os.Open(*inputFilename)
		if err != nil {
			return 1
		}
		defer input.Close()
	}
	log.Print("reading datasets")
	lg, err := ReadLiger(input, strings.HasSuffix(*inputFilename, ".gz"))
	if err != nil {
		return 1
	}
	err = input.Close()
	if err != nil {
		return 1
	}
	log.Printf("reading done, %d datasets", len(lg.Datasets))

	var use []int
	if cmd.datasetsUse != "" {
		for _, tok := range strings.Split(cmd.datasetsUse, ",") {
			var i int
			i, err = strconv.Atoi(strings.TrimSpace(tok))
			if err != nil {
				return 1
			}
			use = append(use, i)
		}
	}

	lg, err = CreateLiger(lg.Datasets, CreateOptions{
		TakeGeneUnion: cmd.geneUnion,
		RemoveMissing: cmd.removeMissing,
	})
	if err != nil {
		return 1
	}
	log.Print("normalizing")
	lg, err = Normalize(lg)
	if err != nil {
		return 1
	}
	log.Print("selecting variable genes")
	opts := SelectGenesOptions{
		VarThresh:   []float64{cmd.varThresh},
		AlphaThresh: cmd.alphaThresh,
		Tol:         cmd.tol,
		DatasetsUse: use,
		Combine:     cmd.combine,
		KeepUnique:  cmd.keepUnique,
		Capitalize:  cmd.capitalize,
	}
	if cmd.numGenes >= 0 {
		opts.NumGenes = []int{cmd.numGenes}
	}
	lg, _, err = SelectGenes(lg, opts)
	if err != nil {
		return 1
	}
	log.Printf("selected %d genes", len(lg.VarGenes))
	log.Print("scaling")
	lg, err = ScaleNotCenter(lg, cmd.removeMissing)
	if err != nil {
		return 1
	}

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(*outputFilename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	log.Print("writing")
	if strings.HasSuffix(*outputFilename, ".gz") {
		gzw := pgzip.NewWriter(bufw)
		err = WriteLiger(gzw, lg)
		if err != nil {
			return 1
		}
		err = gzw.Close()
	} else {
		err = WriteLiger(bufw, lg)
	}
	if err != nil {
		return 1
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	log.Print("done")
	return 0
}
