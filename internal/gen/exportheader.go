package gen

import (
	"path/filepath"
	"strings"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/format"
	"github.com/hidl-lang/hidl/internal/fqn"
)

// collectExportedTypes gathers every @export enum across the package in
// file order.
func collectExportedTypes(q fqn.FQN, c *coordinator.Coordinator) ([]*ast.EnumType, error) {
	targets, err := packageTargets(q, c)
	if err != nil {
		return nil, err
	}
	var exported []*ast.EnumType
	for _, t := range targets {
		a, err := c.Parse(t)
		if err != nil {
			return nil, err
		}
		a.AppendExportedTypes(&exported)
	}
	return exported, nil
}

// generateExportHeaderForPackage exports @export enums for consumption
// by legacy code: a plain C header, or a managed constants class.
func generateExportHeaderForPackage(forJava bool) GenerateFunc {
	return func(q fqn.FQN, self string, c *coordinator.Coordinator, outPath string) error {
		exported, err := collectExportedTypes(q, c)
		if err != nil {
			return err
		}
		if len(exported) == 0 {
			return nil
		}
		if forJava {
			parts := append([]string{outPath}, strings.Split(q.JavaPackage(), ".")...)
			path := filepath.Join(append(parts, "Constants.java")...)
			return writeFormatted(path, func(out *format.Formatter) error {
				return emitJavaConstants(out, q, exported)
			})
		}
		return writeFormatted(outPath, func(out *format.Formatter) error {
			return emitExportHeader(out, q, exported)
		})
	}
}

// exportedName is the emitted constant name: the optional value_prefix
// glued onto the enumerator.
func exportedName(e *ast.EnumType, v *ast.EnumValue) string {
	return e.ExportValuePrefix() + v.Name
}

// chainValues lists the values of e including inherited ones, outermost
// ancestor first, so numbering reads in declaration order.
func chainValues(e *ast.EnumType) []struct {
	Owner *ast.EnumType
	Value *ast.EnumValue
} {
	var chain []*ast.EnumType
	for cur := e; cur != nil; cur = cur.Parent {
		chain = append([]*ast.EnumType{cur}, chain...)
	}
	var vals []struct {
		Owner *ast.EnumType
		Value *ast.EnumValue
	}
	for _, owner := range chain {
		for _, v := range owner.Values {
			vals = append(vals, struct {
				Owner *ast.EnumType
				Value *ast.EnumValue
			}{owner, v})
		}
	}
	return vals
}

func emitExportHeader(out *format.Formatter, q fqn.FQN, exported []*ast.EnumType) error {
	guard := "HIDL_GENERATED_" + strings.ToUpper(q.TokenName()) + "_EXPORTED_CONSTANTS_H_"

	out.Println("// This file is autogenerated by hidl-gen. Do not edit manually.")
	out.Printf("// Source: %s\n", q.String()).Endl()
	out.Printf("#ifndef %s\n", guard)
	out.Printf("#define %s\n", guard).Endl()
	out.Println("#ifdef __cplusplus")
	out.Println("extern \"C\" {")
	out.Println("#endif").Endl()

	for _, e := range exported {
		name := e.ExportName()
		if name == "" {
			out.Println("enum {")
		} else {
			out.Printf("enum %s {\n", name)
		}
		out.Block(func() {
			for _, cv := range chainValues(e) {
				out.Printf("%s = %d,\n", exportedName(cv.Owner, cv.Value), cv.Value.Value)
			}
		})
		out.Println("};").Endl()
	}

	out.Println("#ifdef __cplusplus")
	out.Println("}")
	out.Println("#endif").Endl()
	out.Printf("#endif  // %s\n", guard)
	return out.Err()
}

func emitJavaConstants(out *format.Formatter, q fqn.FQN, exported []*ast.EnumType) error {
	out.Println("// This file is autogenerated by hidl-gen. Do not edit manually.")
	out.Printf("// Source: %s\n", q.String()).Endl()
	out.Printf("package %s;\n", q.JavaPackage()).Endl()
	out.Println("public class Constants {")
	out.Block(func() {
		for _, e := range exported {
			name := e.ExportName()
			if name == "" {
				name = e.LocalName()
			}
			carrier := e.JavaType()
			out.Printf("public static final class %s {\n", name)
			out.Block(func() {
				for _, cv := range chainValues(e) {
					out.Printf("public static final %s %s = %d;\n",
						carrier, exportedName(cv.Owner, cv.Value), cv.Value.Value)
				}
			})
			out.Println("}")
		}
	})
	out.Println("}")
	return out.Err()
}
