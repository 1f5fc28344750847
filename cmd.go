// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package liger

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

type commandRunner interface {
	RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int
}

var handlers = map[string]commandRunner{
	"preprocess":   &preprocessor{},
	"export-numpy": &exportNumpy{},
	"stats":        &statscmd{},
}

func Main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.StandardLogger().Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(runCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func runCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	handler, ok := handlers[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unrecognized command %q\n", args[0])
		usage(stderr)
		return 2
	}
	return handler.RunCommand(prog+" "+args[0], args[1:], stdin, stdout, stderr)
}

func usage(w io.Writer) {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "usage: liger command [options]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
