package gen

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/format"
	"github.com/hidl-lang/hidl/internal/fqn"
)

const autogenNotice = "// This file is autogenerated by hidl-gen. Do not edit manually."

// testOnly marks Soong output as test-only (-t): the library is not
// registered as a VNDK member.
var testOnly bool

// SetTestOnly toggles test-only Soong generation.
func SetTestOnly(v bool) { testOnly = v }

// packageASTs parses every file of the package in listing order.
func packageASTs(q fqn.FQN, c *coordinator.Coordinator) ([]*ast.AST, error) {
	targets, err := packageTargets(q, c)
	if err != nil {
		return nil, err
	}
	asts := make([]*ast.AST, 0, len(targets))
	for _, t := range targets {
		a, err := c.Parse(t)
		if err != nil {
			return nil, err
		}
		asts = append(asts, a)
	}
	return asts, nil
}

// bpModuleName is the Soong module name of the package library.
func bpModuleName(q fqn.FQN) string {
	return q.PackageRoot().String()
}

// makeJavaModuleName is the make module name of the managed library.
func makeJavaModuleName(q fqn.FQN) string {
	return fmt.Sprintf("%s-V%d.%d-java", q.Package, q.Major, q.Minor)
}

// importedPackageLibs lists the package libraries this package links
// against, one per distinct imported package, sorted.
func importedPackageLibs(q fqn.FQN, asts []*ast.AST) []string {
	seen := map[string]bool{}
	for _, a := range asts {
		for _, imp := range a.ImportedPackages() {
			name := imp.PackageRoot().String()
			if imp.Package == q.Package && imp.Major == q.Major && imp.Minor == q.Minor {
				continue
			}
			seen[name] = true
		}
	}
	var libs []string
	for name := range seen {
		libs = append(libs, name)
	}
	sort.Strings(libs)
	return libs
}

func rootOptionFor(q fqn.FQN, c *coordinator.Coordinator) (string, error) {
	opt, err := c.PackageRootOption(q)
	if err != nil {
		return "", err
	}
	return opt, nil
}

// generateMakefileForPackage writes the Android.mk that builds the
// managed binding (and exported constants) of a package.
func generateMakefileForPackage(q fqn.FQN, self string, c *coordinator.Coordinator, outPath string) error {
	asts, err := packageASTs(q, c)
	if err != nil {
		return err
	}
	javaCompatible := true
	for _, a := range asts {
		if !a.IsJavaCompatible() {
			javaCompatible = false
			break
		}
	}
	exported, err := collectExportedTypes(q, c)
	if err != nil {
		return err
	}
	if !javaCompatible && len(exported) == 0 {
		return fmt.Errorf("%s: no managed binding and no exported constants, nothing to build", q.String())
	}

	rootOpt, err := rootOptionFor(q, c)
	if err != nil {
		return err
	}
	pkgPath, err := c.PackagePath(q)
	if err != nil {
		return err
	}

	return writeFormatted(filepath.Join(outPath, pkgPath, "Android.mk"), func(out *format.Formatter) error {
		out.Println("# This file is autogenerated by hidl-gen. Do not edit manually.").Endl()
		out.Println("LOCAL_PATH := $(call my-dir)").Endl()
		out.Println("################################################################################").Endl()
		out.Println("include $(CLEAR_VARS)")
		out.Printf("LOCAL_MODULE := %s\n", makeJavaModuleName(q))
		out.Println("LOCAL_MODULE_CLASS := JAVA_LIBRARIES").Endl()
		out.Println("intermediates := $(call local-generated-sources-dir, COMMON)").Endl()
		out.Println("HIDL := $(HOST_OUT_EXECUTABLES)/hidl-gen$(HOST_EXECUTABLE_SUFFIX)").Endl()
		out.Println("LOCAL_JAVA_LIBRARIES := hwbinder").Endl()

		if javaCompatible {
			for _, a := range asts {
				emitMakefileGenBlock(out, a, q, rootOpt, "managed-binding",
					javaGenOutputs(a))
			}
		}
		if len(exported) > 0 {
			javaPkgDir := strings.ReplaceAll(q.JavaPackage(), ".", "/")
			emitMakefileConstantsBlock(out, q, rootOpt, javaPkgDir+"/Constants.java")
		}

		out.Println("include $(BUILD_JAVA_LIBRARY)")
		return out.Err()
	})
}

// javaGenOutputs lists the .java files one .hal contributes.
func javaGenOutputs(a *ast.AST) []string {
	dir := strings.ReplaceAll(a.Package().JavaPackage(), ".", "/")
	if iface := a.GetInterface(); iface != nil {
		return []string{dir + "/" + iface.LocalName() + ".java"}
	}
	var outs []string
	for _, t := range a.RootScope().SubTypes() {
		outs = append(outs, dir+"/"+t.LocalName()+".java")
	}
	return outs
}

func emitMakefileGenBlock(out *format.Formatter, a *ast.AST, q fqn.FQN, rootOpt, lang string, outputs []string) {
	target := fileFQNOf(a)
	out.Println("#")
	out.Printf("# Build %s (%s)\n", filepath.Base(a.Path()), target.String())
	out.Println("#")
	for i, o := range outputs {
		if i == 0 {
			out.Printf("GEN := $(intermediates)/%s\n", o)
		} else {
			out.Printf("GEN += $(intermediates)/%s\n", o)
		}
	}
	out.Println("$(GEN): $(HIDL)")
	out.Println("$(GEN): PRIVATE_HIDL := $(HIDL)")
	out.Printf("$(GEN): PRIVATE_DEPS := $(LOCAL_PATH)/%s\n", filepath.Base(a.Path()))
	out.Println("$(GEN): PRIVATE_OUTPUT_DIR := $(intermediates)")
	out.Println("$(GEN): PRIVATE_CUSTOM_TOOL = \\")
	out.Block(func() {
		out.Println("$(PRIVATE_HIDL) -o $(PRIVATE_OUTPUT_DIR) \\")
		out.Printf("-L%s -r%s \\\n", lang, rootOpt)
		out.Printf("%s\n", target.String())
	})
	out.Printf("$(GEN): $(LOCAL_PATH)/%s\n", filepath.Base(a.Path()))
	out.Println("\t$(transform-generated-source)")
	out.Println("LOCAL_GENERATED_SOURCES += $(GEN)").Endl()
}

func emitMakefileConstantsBlock(out *format.Formatter, q fqn.FQN, rootOpt, output string) {
	out.Println("#")
	out.Printf("# Build exported constants (%s)\n", q.String())
	out.Println("#")
	out.Printf("GEN := $(intermediates)/%s\n", output)
	out.Println("$(GEN): $(HIDL)")
	out.Println("$(GEN): PRIVATE_HIDL := $(HIDL)")
	out.Println("$(GEN): PRIVATE_OUTPUT_DIR := $(intermediates)")
	out.Println("$(GEN): PRIVATE_CUSTOM_TOOL = \\")
	out.Block(func() {
		out.Println("$(PRIVATE_HIDL) -o $(PRIVATE_OUTPUT_DIR) \\")
		out.Printf("-Lmanaged-constants -r%s \\\n", rootOpt)
		out.Printf("%s\n", q.String())
	})
	out.Println("$(GEN):")
	out.Println("\t$(transform-generated-source)")
	out.Println("LOCAL_GENERATED_SOURCES += $(GEN)").Endl()
}

// generateAndroidBpForPackage writes the Soong Android.bp building the
// native library of a package.
func generateAndroidBpForPackage(q fqn.FQN, self string, c *coordinator.Coordinator, outPath string) error {
	asts, err := packageASTs(q, c)
	if err != nil {
		return err
	}
	rootOpt, err := rootOptionFor(q, c)
	if err != nil {
		return err
	}
	pkgPath, err := c.PackagePath(q)
	if err != nil {
		return err
	}
	genDir := strings.Join(append(q.PackageComponents(),
		fmt.Sprintf("%d.%d", q.Major, q.Minor)), "/")
	name := bpModuleName(q)

	return writeFormatted(filepath.Join(outPath, pkgPath, "Android.bp"), func(out *format.Formatter) error {
		out.Println(autogenNotice).Endl()

		out.Println("filegroup {")
		out.Block(func() {
			out.Printf("name: \"%s_hal\",\n", name)
			out.Println("srcs: [")
			out.Block(func() {
				for _, a := range asts {
					out.Printf("\"%s\",\n", filepath.Base(a.Path()))
				}
			})
			out.Println("],")
		})
		out.Println("}").Endl()

		out.Println("genrule {")
		out.Block(func() {
			out.Printf("name: \"%s_genc++\",\n", name)
			out.Println("tools: [\"hidl-gen\"],")
			out.Printf("cmd: \"$(location hidl-gen) -o $(genDir) -Lc++-sources -r%s %s\",\n",
				rootOpt, q.String())
			out.Printf("srcs: [\":%s_hal\"],\n", name)
			out.Println("out: [")
			out.Block(func() {
				for _, a := range asts {
					out.Printf("\"%s/%s\",\n", genDir, cppSourceName(a))
				}
			})
			out.Println("],")
		})
		out.Println("}").Endl()

		out.Println("genrule {")
		out.Block(func() {
			out.Printf("name: \"%s_genc++_headers\",\n", name)
			out.Println("tools: [\"hidl-gen\"],")
			out.Printf("cmd: \"$(location hidl-gen) -o $(genDir) -Lc++-headers -r%s %s\",\n",
				rootOpt, q.String())
			out.Printf("srcs: [\":%s_hal\"],\n", name)
			out.Println("out: [")
			out.Block(func() {
				for _, a := range asts {
					for _, h := range cppHeaderNames(a) {
						out.Printf("\"%s/%s\",\n", genDir, h)
					}
				}
			})
			out.Println("],")
		})
		out.Println("}").Endl()

		out.Println("cc_library_shared {")
		out.Block(func() {
			out.Printf("name: \"%s\",\n", name)
			out.Printf("generated_sources: [\"%s_genc++\"],\n", name)
			out.Printf("generated_headers: [\"%s_genc++_headers\"],\n", name)
			out.Printf("export_generated_headers: [\"%s_genc++_headers\"],\n", name)
			out.Println("vendor_available: true,")
			if !testOnly {
				out.Println("vndk: {")
				out.Block(func() {
					out.Println("enabled: true,")
				})
				out.Println("},")
			}
			out.Println("shared_libs: [")
			out.Block(func() {
				for _, lib := range append([]string{
					"libhidlbase",
					"libhidltransport",
					"libhwbinder",
					"liblog",
					"libutils",
					"libcutils",
				}, importedPackageLibs(q, asts)...) {
					out.Printf("\"%s\",\n", lib)
				}
			})
			out.Println("],")
			out.Println("export_shared_lib_headers: [")
			out.Block(func() {
				out.Println("\"libhidlbase\",")
				out.Println("\"libhidltransport\",")
				out.Println("\"libhwbinder\",")
				out.Println("\"libutils\",")
				for _, lib := range importedPackageLibs(q, asts) {
					out.Printf("\"%s\",\n", lib)
				}
			})
			out.Println("],")
		})
		out.Println("}")
		return out.Err()
	})
}

// cppSourceName is the translation unit one .hal turns into.
func cppSourceName(a *ast.AST) string {
	if iface := a.GetInterface(); iface != nil {
		return iface.FQName().InterfaceBaseName() + "All.cpp"
	}
	return "types.cpp"
}

// cppHeaderNames lists the headers one .hal turns into.
func cppHeaderNames(a *ast.AST) []string {
	iface := a.GetInterface()
	if iface == nil {
		return []string{"types.h", "hwtypes.h"}
	}
	q := iface.FQName()
	return []string{
		q.Name() + ".h",
		q.InterfaceHwName() + ".h",
		q.InterfaceStubName() + ".h",
		q.InterfaceProxyName() + ".h",
		q.InterfacePassthroughName() + ".h",
	}
}

// generateAndroidBpImplForPackage writes the Android.bp for a vendor
// implementation library alongside the -Lc++-impl skeletons.
func generateAndroidBpImplForPackage(q fqn.FQN, self string, c *coordinator.Coordinator, outPath string) error {
	asts, err := packageASTs(q, c)
	if err != nil {
		return err
	}
	name := bpModuleName(q)

	return writeFormatted(filepath.Join(outPath, "Android.bp"), func(out *format.Formatter) error {
		out.Println(autogenNotice).Endl()
		out.Println("cc_library_shared {")
		out.Block(func() {
			out.Printf("name: \"%s-impl\",\n", name)
			out.Println("relative_install_path: \"hw\",")
			out.Println("proprietary: true,")
			out.Println("srcs: [")
			out.Block(func() {
				for _, a := range asts {
					iface := a.GetInterface()
					if iface == nil {
						continue
					}
					out.Printf("\"%s.cpp\",\n", implClassName(iface))
				}
			})
			out.Println("],")
			out.Println("shared_libs: [")
			out.Block(func() {
				for _, lib := range append([]string{
					"libhidlbase",
					"libhidltransport",
					"libhwbinder",
					"liblog",
					"libutils",
				}, append(importedPackageLibs(q, asts), name)...) {
					out.Printf("\"%s\",\n", lib)
				}
			})
			out.Println("],")
		})
		out.Println("}")
		return out.Err()
	})
}
