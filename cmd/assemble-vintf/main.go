// assemble-vintf merges VINTF manifest or compatibility matrix
// fragments into a single document, optionally rebuilding kernel
// requirements from config fragments and checking the result against
// the other side.
//
// Usage: assemble-vintf -i <input>[:<input>...] [-o <output>] [-m]
// [-c <check file>] [--kernel <version>:<config>[:<config>...]]*
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hidl-lang/hidl/internal/cli"
	"github.com/hidl-lang/hidl/internal/vintf"
)

type kernelFlags struct {
	assembler *vintf.Assembler
}

func (k kernelFlags) String() string { return "" }

func (k kernelFlags) Set(value string) error {
	return k.assembler.AddKernel(value)
}

func usage() {
	fmt.Fprintf(os.Stderr,
		"usage: %s -i <input>[:<input>...] [-o <output>] [-m] [-c <check file>] [--kernel <version>:<config>[:<config>...]]*\n",
		filepath.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "The first input decides whether a manifest or a compatibility")
	fmt.Fprintln(os.Stderr, "matrix is assembled; the rest must be fragments of the same kind.")
	fmt.Fprintln(os.Stderr, "")
	flag.PrintDefaults()
}

func main() {
	a := &vintf.Assembler{Log: cli.NewLogger(false, false)}

	var (
		inputs       string
		outputPath   string
		outputMatrix bool
		checkFile    string
		showVersion  bool
	)
	flag.StringVar(&inputs, "i", "", "':'-separated input files; the first decides the document kind")
	flag.StringVar(&outputPath, "o", "", "output file (default: standard output)")
	flag.BoolVar(&outputMatrix, "m", false, "emit a compatible matrix generated from the assembled manifest")
	flag.StringVar(&checkFile, "c", "", "check the result against this manifest/matrix")
	flag.Var(kernelFlags{a}, "kernel", "kernel requirement, version:config[:config...] (repeatable)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		cli.PrintVersion("assemble-vintf", false)
		return
	}

	if inputs == "" {
		fmt.Fprintln(os.Stderr, "error: no input files (-i) specified")
		usage()
		os.Exit(1)
	}
	for _, in := range strings.Split(inputs, ":") {
		if in != "" {
			a.InFiles = append(a.InFiles, in)
		}
	}
	a.OutputMatrix = outputMatrix
	a.CheckFile = checkFile

	if outputPath == "" {
		a.Out = os.Stdout
		if err := a.Assemble(); err != nil {
			cli.ExitWithError("%v", err)
		}
		return
	}

	f, err := os.Create(outputPath)
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	a.Out = f
	if err := a.Assemble(); err != nil {
		f.Close()
		os.Remove(outputPath)
		cli.ExitWithError("%v", err)
	}
	if err := f.Close(); err != nil {
		cli.ExitWithError("%v", err)
	}
}
