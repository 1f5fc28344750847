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
	"strings"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// exportNumpy writes each dataset's scale layer as a dense cells-by-
// genes .npy file, plus the identifier lists, for the factorization
// collaborator.
type exportNumpy struct{}

func (cmd *exportNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	outputDir := flags.String("output-dir", ".", "output `directory`")
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
	lg, err := ReadLiger(input, strings.HasSuffix(*inputFilename, ".gz"))
	if err != nil {
		return 1
	}
	err = input.Close()
	if err != nil {
		return 1
	}

	for _, ds := range lg.Datasets {
		scale, err2 := ds.layer(LayerScale)
		if err2 != nil {
			err = err2
			return 1
		}
		rows, cols := scale.Dims()
		dense := mat.NewDense(rows, cols, denseData(scale))
		log.Printf("%s: writing %d rows, %d cols", ds.Name, rows, cols)
		err = writeNumpy(fmt.Sprintf("%s/%s.scale.npy", *outputDir, ds.Name), dense)
		if err != nil {
			return 1
		}
		err = writeLines(fmt.Sprintf("%s/%s.barcodes.txt", *outputDir, ds.Name), ds.Barcodes)
		if err != nil {
			return 1
		}
		err = writeLines(fmt.Sprintf("%s/%s.genes.txt", *outputDir, ds.Name), ds.Genes)
		if err != nil {
			return 1
		}
	}
	err = writeLines(*outputDir+"/var_genes.txt", lg.VarGenes)
	if err != nil {
		return 1
	}
	log.Print("done")
	return 0
}

func writeNumpy(fnm string, dense *mat.Dense) error {
	output, err := os.OpenFile(fnm, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
	if err != nil {
		return err
	}
	defer output.Close()
	rows, cols := dense.Dims()
	bufw := bufio.NewWriter(output)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	npw.Shape = []int{rows, cols}
	err = npw.WriteFloat64(dense.RawMatrix().Data)
	if err != nil {
		return err
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}

func writeLines(fnm string, lines []string) error {
	output, err := os.OpenFile(fnm, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0777)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	for _, line := range lines {
		_, err = fmt.Fprintln(bufw, line)
		if err != nil {
			return err
		}
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}
