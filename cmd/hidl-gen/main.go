// hidl-gen compiles HIDL interface files into language bindings, build
// glue, VTS schemas and interface hashes.
//
// Usage: hidl-gen [-p <root>] -o <output path> -L <language>
// (-r <package:path>)* [-t] [-v] [-w] fqname+
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hidl-lang/hidl/internal/cli"
	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/fqn"
	"github.com/hidl-lang/hidl/internal/gen"
	"github.com/hidl-lang/hidl/internal/watch"
)

// rootsFlag collects repeatable -r package:path options.
type rootsFlag []string

func (r *rootsFlag) String() string { return strings.Join(*r, ",") }

func (r *rootsFlag) Set(value string) error {
	if !strings.Contains(value, ":") {
		return fmt.Errorf("expected package:path, got %q", value)
	}
	*r = append(*r, value)
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr,
		"usage: %s [-p <root>] -o <output path> -L <language> (-r <package:path>)* [-t] [-v] [-w] fqname+\n\n",
		filepath.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "fqname: a fully qualified name like android.hardware.nfc@1.0::INfc")
	fmt.Fprintln(os.Stderr, "        or a package root like android.hardware.nfc@1.0")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "-L <language>: one of")
	for _, h := range gen.Handlers() {
		fmt.Fprintf(os.Stderr, "    %-18s %s\n", h.Key, h.Description)
	}
	fmt.Fprintln(os.Stderr, "")
	flag.PrintDefaults()
}

func main() {
	var (
		rootPath    string
		outPath     string
		lang        string
		roots       rootsFlag
		testMode    bool
		verbose     bool
		watching    bool
		showVersion bool
	)
	flag.StringVar(&rootPath, "p", "", "root of the source tree (default: $ANDROID_BUILD_TOP, then the working directory)")
	flag.StringVar(&outPath, "o", "", "output path (directory or file depending on -L)")
	flag.StringVar(&lang, "L", "", "output language/format")
	flag.Var(&roots, "r", "package root mapping, package:path (repeatable)")
	flag.BoolVar(&testMode, "t", false, "generate test-only build files (androidbp only)")
	flag.BoolVar(&verbose, "v", false, "verbose output")
	flag.BoolVar(&watching, "w", false, "watch the interface files and regenerate on change")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		cli.PrintVersion("hidl-gen", false)
		return
	}

	log := cli.NewLogger(verbose, false)

	if lang == "" {
		fmt.Fprintln(os.Stderr, "error: no -L language specified")
		usage()
		os.Exit(1)
	}
	handler, ok := gen.Lookup(lang)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unrecognized -L option %q\n", lang)
		usage()
		os.Exit(1)
	}
	if testMode && lang != "androidbp" {
		cli.ExitWithError("-t is only valid with -L androidbp")
	}
	gen.SetTestOnly(testMode)

	if rootPath == "" {
		rootPath = os.Getenv("ANDROID_BUILD_TOP")
	}
	if rootPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			cli.ExitWithError("%v", err)
		}
		rootPath = wd
	}

	switch handler.Mode {
	case gen.NeedsDir, gen.NeedsFile:
		if outPath == "" {
			cli.ExitWithError("-L %s requires -o", lang)
		}
	case gen.NeedsSrc:
		if outPath == "" {
			outPath = rootPath
		}
	case gen.NotNeeded:
		outPath = ""
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "error: no fqname specified")
		usage()
		os.Exit(1)
	}

	var targets []fqn.FQN
	for _, arg := range flag.Args() {
		q, err := fqn.Parse(arg)
		if err != nil {
			cli.ExitWithError("%v", err)
		}
		if err := handler.Validate(q, lang); err != nil {
			cli.ExitWithError("%v", err)
		}
		targets = append(targets, q)
	}

	run := func() error {
		// A fresh coordinator per run so watch-mode rebuilds never
		// serve stale ASTs from the cache.
		c := coordinator.New(rootPath, log)
		if len(roots) == 0 {
			c.AddDefaultPackageRoots()
		}
		for _, r := range roots {
			prefix, path, _ := strings.Cut(r, ":")
			if err := c.AddPackageRoot(prefix, path); err != nil {
				return err
			}
		}
		for _, q := range targets {
			if err := handler.Generate(q, os.Args[0], c, outPath); err != nil {
				return err
			}
		}
		return nil
	}

	if err := run(); err != nil {
		cli.ExitWithError("%v", err)
	}

	if !watching {
		return
	}

	w, err := watch.New(log)
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	defer w.Close()

	// Watch the package directory of every requested FQN.
	dirs := map[string]bool{}
	c := coordinator.New(rootPath, log)
	if len(roots) == 0 {
		c.AddDefaultPackageRoots()
	}
	for _, r := range roots {
		prefix, path, _ := strings.Cut(r, ":")
		if err := c.AddPackageRoot(prefix, path); err != nil {
			cli.ExitWithError("%v", err)
		}
	}
	for _, q := range targets {
		rel, err := c.PackagePath(q)
		if err != nil {
			cli.ExitWithError("%v", err)
		}
		dirs[filepath.Join(rootPath, rel)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			cli.ExitWithError("watching %s: %v", dir, err)
		}
		log.Info("watching %s", dir)
	}

	w.Run(func() {
		if err := run(); err != nil {
			log.Error("%v", err)
			return
		}
		log.Info("regenerated %d target(s)", len(targets))
	})
}
