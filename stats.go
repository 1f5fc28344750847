// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// statscmd summarizes a dataset or preprocessed-aggregate gob stream
// as JSON.
type statscmd struct{}

func (cmd *statscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	err = cmd.doStats(input, bufw, strings.HasSuffix(*inputFilename, ".gz"))
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
	return 0
}

func (cmd *statscmd) doStats(input io.Reader, output io.Writer, gz bool) error {
	type datasetStats struct {
		Name      string
		DataType  string
		Cells     int
		Genes     int
		RawNNZ    int
		NormNNZ   int `json:",omitempty"`
		ScaleNNZ  int `json:",omitempty"`
		TotalUMIs float64
	}
	var ret struct {
		Datasets   []datasetStats
		TotalCells int
		VarGenes   int
	}

	lg, err := ReadLiger(input, gz)
	if err != nil {
		return err
	}
	for _, ds := range lg.Datasets {
		st := datasetStats{
			Name:     ds.Name,
			DataType: ds.DataType,
			Cells:    len(ds.Barcodes),
			Genes:    len(ds.Genes),
			RawNNZ:   ds.Raw.NNZ(),
		}
		if ds.Norm != nil {
			st.NormNNZ = ds.Norm.NNZ()
		}
		if ds.Scale != nil {
			st.ScaleNNZ = ds.Scale.NNZ()
		}
		for _, s := range rowSums(ds.Raw) {
			st.TotalUMIs += s
		}
		ret.Datasets = append(ret.Datasets, st)
		ret.TotalCells += len(ds.Barcodes)
	}
	ret.VarGenes = len(lg.VarGenes)

	return json.NewEncoder(output).Encode(ret)
}
