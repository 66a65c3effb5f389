package vintf

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/hidl-lang/hidl/internal/cli"
)

// KernelArg is one --kernel flag: the minimum LTS version and the
// ':'-separated config fragment files that kernels of that version must
// satisfy.
type KernelArg struct {
	MinLTS      *semver.Version
	ConfigPaths string
}

// Assembler merges VINTF fragment documents into a single manifest or
// compatibility matrix, the way the build system invokes it: the first
// input decides the document kind, the rest are folded in.
type Assembler struct {
	InFiles      []string
	Out          io.Writer
	OutputMatrix bool   // emit a compatible matrix instead of the manifest
	CheckFile    string // cross-document compatibility check input

	kernels []KernelArg

	// Env overrides os.LookupEnv in tests.
	Env func(string) (string, bool)

	Log *cli.Logger
}

// AddKernel records a --kernel argument of the form
// "version:path[:path...]". Each version may appear at most once.
func (a *Assembler) AddKernel(arg string) error {
	version, rest, ok := strings.Cut(arg, ":")
	if !ok || rest == "" {
		return fmt.Errorf("--kernel %q: expected <version>:<config>[:<config>...]", arg)
	}
	minLts, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("--kernel %q: %w", arg, err)
	}
	for _, k := range a.kernels {
		if k.MinLTS.Equal(minLts) {
			return fmt.Errorf("--kernel: duplicate version %v", minLts)
		}
	}
	a.kernels = append(a.kernels, KernelArg{MinLTS: minLts, ConfigPaths: rest})
	return nil
}

func (a *Assembler) logger() *cli.Logger {
	if a.Log == nil {
		a.Log = cli.NewLogger(false, false)
	}
	return a.Log
}

func (a *Assembler) lookupEnv(key string) (string, bool) {
	if a.Env != nil {
		return a.Env(key)
	}
	return os.LookupEnv(key)
}

// getFlagVersion reads a dotted version from the environment. A missing
// variable keeps the default and warns; a malformed one is an error.
func (a *Assembler) getFlagVersion(key string, out *Version) error {
	text, ok := a.lookupEnv(key)
	if !ok {
		a.logger().Warn("%s is missing, defaulting to %v", key, *out)
		return nil
	}
	v, err := ParseVersion(text)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*out = v
	return nil
}

func (a *Assembler) getFlagUint(key string, out *uint) error {
	text, ok := a.lookupEnv(key)
	if !ok {
		a.logger().Warn("%s is missing, defaulting to %d", key, *out)
		return nil
	}
	n, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*out = uint(n)
	return nil
}

// Assemble runs the pipeline: probe the first input as a manifest, then
// as a matrix, and follow whichever parses.
func (a *Assembler) Assemble() error {
	if len(a.InFiles) == 0 {
		return fmt.Errorf("no input files")
	}
	first, err := os.ReadFile(a.InFiles[0])
	if err != nil {
		return err
	}
	if manifest, merr := ParseHalManifest(first); merr == nil {
		return a.assembleHalManifest(manifest)
	} else if matrix, xerr := ParseCompatibilityMatrix(first); xerr == nil {
		return a.assembleCompatibilityMatrix(matrix)
	} else {
		return fmt.Errorf("%s is neither a manifest (%v) nor a compatibility matrix (%v)",
			a.InFiles[0], merr, xerr)
	}
}

func (a *Assembler) assembleHalManifest(manifest *HalManifest) error {
	for _, path := range a.InFiles[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		next, err := ParseHalManifest(data)
		if err != nil {
			if _, xerr := ParseCompatibilityMatrix(data); xerr == nil {
				return fmt.Errorf("%s is a compatibility matrix, but %s is a manifest",
					path, a.InFiles[0])
			}
			return fmt.Errorf("%s: %w", path, err)
		}
		if next.Type != manifest.Type {
			return fmt.Errorf("%s is a %s manifest, but %s is a %s manifest",
				path, next.Type, a.InFiles[0], manifest.Type)
		}
		if err := manifest.AddAll(&next.HalGroup); err != nil {
			return fmt.Errorf("merging %s: %w", path, err)
		}
		manifest.XmlFiles = append(manifest.XmlFiles, next.XmlFiles...)
		manifest.Vndks = append(manifest.Vndks, next.Vndks...)
	}
	if manifest.Type == SchemaDevice {
		if err := a.getFlagVersion("BOARD_SEPOLICY_VERS", &manifest.SepolicyVersion); err != nil {
			return err
		}
	}

	if a.OutputMatrix {
		generated := manifest.GenerateCompatibleMatrix()
		if a.CheckFile == "" {
			a.logger().Warn("-m is specified without -c; the generated matrix is not checked against anything")
		} else if err := a.checkManifestAgainst(manifest, a.CheckFile); err != nil {
			return err
		}
		if _, err := io.WriteString(a.Out, xml.Header); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "<!-- Generated from:\n")
		for _, path := range a.InFiles {
			fmt.Fprintf(a.Out, "         %s\n", path)
		}
		fmt.Fprintf(a.Out, "-->\n")
		return encodeDoc(a.Out, matrixToXML(generated))
	}

	if a.CheckFile != "" {
		if err := a.checkManifestAgainst(manifest, a.CheckFile); err != nil {
			return err
		}
	}
	return WriteHalManifest(a.Out, manifest)
}

func (a *Assembler) checkManifestAgainst(manifest *HalManifest, matrixPath string) error {
	data, err := os.ReadFile(matrixPath)
	if err != nil {
		return err
	}
	matrix, err := ParseCompatibilityMatrix(data)
	if err != nil {
		return fmt.Errorf("%s: %w", matrixPath, err)
	}
	if ok, reason := manifest.CheckCompatibility(matrix); !ok {
		return fmt.Errorf("%w: %s", ErrIncompatible, reason)
	}
	return nil
}

func (a *Assembler) assembleCompatibilityMatrix(matrix *CompatibilityMatrix) error {
	for _, path := range a.InFiles[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		next, err := ParseCompatibilityMatrix(data)
		if err != nil {
			if _, merr := ParseHalManifest(data); merr == nil {
				return fmt.Errorf("%s is a manifest, but %s is a compatibility matrix",
					path, a.InFiles[0])
			}
			return fmt.Errorf("%s: %w", path, err)
		}
		if next.Type != matrix.Type {
			return fmt.Errorf("%s is a %s matrix, but %s is a %s matrix",
				path, next.Type, a.InFiles[0], matrix.Type)
		}
		if err := matrix.AddAll(&next.HalGroup); err != nil {
			return fmt.Errorf("merging %s: %w", path, err)
		}
		matrix.XmlFiles = append(matrix.XmlFiles, next.XmlFiles...)
		matrix.Kernels = append(matrix.Kernels, next.Kernels...)
	}

	if matrix.Type == SchemaFramework {
		if err := a.assembleKernels(matrix); err != nil {
			return err
		}
		var sepolicyVers Version
		if err := a.getFlagVersion("BOARD_SEPOLICY_VERS", &sepolicyVers); err != nil {
			return err
		}
		if err := a.getFlagUint("POLICYVERS", &matrix.Sepolicy.KernelSepolicyVersion); err != nil {
			return err
		}
		matrix.Sepolicy.SepolicyVersions = []VersionRange{{
			Major:    sepolicyVers.Major,
			MinMinor: sepolicyVers.Minor,
			MaxMinor: sepolicyVers.Minor,
		}}
		if err := a.getFlagVersion("FRAMEWORK_VBMETA_VERSION", &matrix.AvbMetaVersion); err != nil {
			return err
		}
	}

	if a.CheckFile != "" {
		data, err := os.ReadFile(a.CheckFile)
		if err != nil {
			return err
		}
		manifest, err := ParseHalManifest(data)
		if err != nil {
			return fmt.Errorf("%s: %w", a.CheckFile, err)
		}
		if ok, reason := manifest.CheckCompatibility(matrix); !ok {
			return fmt.Errorf("%w: %s", ErrIncompatible, reason)
		}
	}
	return WriteCompatibilityMatrix(a.Out, matrix)
}

// assembleKernels replaces any kernel requirements carried by the input
// documents with requirements rebuilt from the --kernel arguments.
func (a *Assembler) assembleKernels(matrix *CompatibilityMatrix) error {
	if len(a.kernels) == 0 {
		return nil
	}
	if len(matrix.Kernels) > 0 {
		a.logger().Warn("input matrix has kernel requirements; they are overwritten by --kernel")
		matrix.Kernels = nil
	}
	for _, arg := range a.kernels {
		conditioned, err := ParseKernelConfigFiles(arg.ConfigPaths)
		if err != nil {
			return err
		}
		for _, cc := range conditioned {
			kernel := MatrixKernel{MinLTS: arg.MinLTS, Configs: cc.Configs}
			if cc.Condition != nil {
				kernel.Conditions = []KernelConfig{*cc.Condition}
			}
			if !matrix.AddKernel(kernel) {
				return fmt.Errorf("kernel requirements apply to framework matrices only")
			}
		}
	}
	return nil
}
