// Package vintf models vendor interface manifests and compatibility
// matrices, parses kernel config fragments into conditioned feature
// requirements, and assembles build-time flags into the documents.
package vintf

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// ErrIncompatible reports a failed manifest/matrix compatibility check.
var ErrIncompatible = errors.New("manifest is not compatible with matrix")

// SchemaType tells which side of the interface a document describes.
type SchemaType string

const (
	SchemaDevice    SchemaType = "device"
	SchemaFramework SchemaType = "framework"
)

// HalFormat is the interface definition language of a HAL entry.
type HalFormat string

const FormatHidl HalFormat = "hidl"

// TransportKind is how calls reach the implementation.
type TransportKind string

const (
	TransportHwbinder    TransportKind = "hwbinder"
	TransportPassthrough TransportKind = "passthrough"
)

// Transport pairs the call mechanism with the bitness a passthrough
// implementation is built for ("32", "64" or "32+64"; empty for binder).
type Transport struct {
	Kind TransportKind
	Arch string
}

// HalInterface is one interface of a HAL entry with its served instance
// names.
type HalInterface struct {
	Name      string
	Instances []string
}

// ManifestHal is one provided HAL: concrete versions and a transport.
type ManifestHal struct {
	Format     HalFormat
	Name       string
	Transport  Transport
	Versions   []Version
	Interfaces []HalInterface
}

func (h ManifestHal) GetName() string { return h.Name }

// MatrixHal is one required (or optional) HAL with version ranges.
type MatrixHal struct {
	Format        HalFormat
	Optional      bool
	Name          string
	VersionRanges []VersionRange
	Interfaces    []HalInterface
}

func (h MatrixHal) GetName() string { return h.Name }

// Hal is anything keyed by a HAL package name.
type Hal interface {
	GetName() string
}

// HalGroup is a multimap from HAL name to entries. ShouldAdd, when set,
// vets each entry before insertion; the default accepts everything.
type HalGroup[H Hal] struct {
	hals map[string][]H

	ShouldAdd func(H) bool
}

// Add inserts one entry, reporting whether it was accepted.
func (g *HalGroup[H]) Add(hal H) bool {
	if g.ShouldAdd != nil && !g.ShouldAdd(hal) {
		return false
	}
	if g.hals == nil {
		g.hals = make(map[string][]H)
	}
	g.hals[hal.GetName()] = append(g.hals[hal.GetName()], hal)
	return true
}

// AddAll moves every entry of other into g.
func (g *HalGroup[H]) AddAll(other *HalGroup[H]) error {
	for _, name := range other.Names() {
		for _, hal := range other.hals[name] {
			if !g.Add(hal) {
				return fmt.Errorf("rejected duplicate hal entry %q", name)
			}
		}
	}
	return nil
}

// ByName returns the entries registered under name.
func (g *HalGroup[H]) ByName(name string) []H { return g.hals[name] }

// Names lists the registered HAL names, sorted.
func (g *HalGroup[H]) Names() []string {
	names := make([]string, 0, len(g.hals))
	for name := range g.hals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sepolicy is the matrix's policy requirement block.
type Sepolicy struct {
	KernelSepolicyVersion uint
	SepolicyVersions      []VersionRange
}

// Vndk names the vendor NDK snapshot and its libraries.
type Vndk struct {
	Version   string
	Libraries []string
}

// ManifestXmlFile and MatrixXmlFile describe auxiliary schema files
// shipped alongside the HALs.
type ManifestXmlFile struct {
	Name    string
	Version Version
}

type MatrixXmlFile struct {
	Name           string
	Format         string
	Optional       bool
	VersionRange   VersionRange
	OverriddenPath string
}

// MatrixKernel is one kernel requirement: the minimum LTS version plus
// config requirements, optionally gated by conditions.
type MatrixKernel struct {
	MinLTS     *semver.Version
	Conditions []KernelConfig
	Configs    []KernelConfig
}

// HalManifest declares the HALs one side provides.
type HalManifest struct {
	HalGroup[ManifestHal]

	Type     SchemaType
	XmlFiles []ManifestXmlFile

	// Device manifests carry the shipped sepolicy version.
	SepolicyVersion Version
	// Framework manifests carry the provided VNDK snapshots.
	Vndks []Vndk
	// AvbMetaVersion is set when the document declares the verified
	// boot metadata version it was built against.
	AvbMetaVersion *Version
}

// CompatibilityMatrix declares the HALs one side requires of the other.
type CompatibilityMatrix struct {
	HalGroup[MatrixHal]

	Type     SchemaType
	XmlFiles []MatrixXmlFile

	// Framework matrix only.
	Kernels        []MatrixKernel
	Sepolicy       Sepolicy
	AvbMetaVersion Version

	// Device matrix only.
	Vndk Vndk
}

// AddKernel appends a kernel requirement; only framework matrices carry
// them.
func (m *CompatibilityMatrix) AddKernel(k MatrixKernel) bool {
	if m.Type != SchemaFramework {
		return false
	}
	m.Kernels = append(m.Kernels, k)
	return true
}

// GenerateCompatibleMatrix builds a skeleton matrix that the manifest
// trivially satisfies: every provided HAL becomes an optional
// requirement at exactly its provided versions.
func (m *HalManifest) GenerateCompatibleMatrix() *CompatibilityMatrix {
	matrix := &CompatibilityMatrix{Type: oppositeSchema(m.Type)}
	for _, name := range m.Names() {
		for _, hal := range m.ByName(name) {
			req := MatrixHal{
				Format:     hal.Format,
				Optional:   true,
				Name:       hal.Name,
				Interfaces: hal.Interfaces,
			}
			for _, v := range hal.Versions {
				req.VersionRanges = append(req.VersionRanges,
					VersionRange{Major: v.Major, MinMinor: v.Minor, MaxMinor: v.Minor})
			}
			matrix.Add(req)
		}
	}
	if m.Type == SchemaDevice {
		matrix.Sepolicy.SepolicyVersions = []VersionRange{{
			Major:    m.SepolicyVersion.Major,
			MinMinor: m.SepolicyVersion.Minor,
			MaxMinor: m.SepolicyVersion.Minor,
		}}
	}
	return matrix
}

func oppositeSchema(t SchemaType) SchemaType {
	if t == SchemaDevice {
		return SchemaFramework
	}
	return SchemaDevice
}

// CheckCompatibility verifies the manifest against the matrix: every
// required HAL must be matched by a provided entry whose versions
// satisfy one of the required ranges and whose instances cover the
// required ones; a framework-side check additionally requires the
// device sepolicy version to be listed and the AVB major versions to
// agree. The reason string is empty iff ok.
func (m *HalManifest) CheckCompatibility(matrix *CompatibilityMatrix) (bool, string) {
	for _, name := range matrix.Names() {
		for _, required := range matrix.ByName(name) {
			if required.Optional {
				continue
			}
			if reason := m.satisfies(required); reason != "" {
				return false, reason
			}
		}
	}

	if m.Type == SchemaDevice && matrix.Type == SchemaFramework {
		if !sepolicyListed(m.SepolicyVersion, matrix.Sepolicy.SepolicyVersions) {
			return false, fmt.Sprintf(
				"sepolicy version %s is not listed in the matrix (supported: %v)",
				m.SepolicyVersion, matrix.Sepolicy.SepolicyVersions)
		}
		if m.AvbMetaVersion != nil && m.AvbMetaVersion.Major != matrix.AvbMetaVersion.Major {
			return false, fmt.Sprintf("AVB meta version %s does not match the matrix's %s",
				m.AvbMetaVersion, matrix.AvbMetaVersion)
		}
	}
	return true, ""
}

func (m *HalManifest) satisfies(required MatrixHal) string {
	provided := m.ByName(required.Name)
	if len(provided) == 0 {
		return fmt.Sprintf("required hal %s (%v) is not provided",
			required.Name, required.VersionRanges)
	}
	for _, hal := range provided {
		if halSatisfies(hal, required) {
			return ""
		}
	}
	return fmt.Sprintf("hal %s is provided at %v but %v is required",
		required.Name, providedVersions(provided), required.VersionRanges)
}

func halSatisfies(hal ManifestHal, required MatrixHal) bool {
	matched := false
	for _, r := range required.VersionRanges {
		for _, v := range hal.Versions {
			if r.SupportedBy(v) {
				matched = true
			}
		}
	}
	if !matched {
		return false
	}
	for _, ri := range required.Interfaces {
		pi, ok := interfaceByName(hal.Interfaces, ri.Name)
		if !ok {
			return false
		}
		for _, inst := range ri.Instances {
			if !containsString(pi.Instances, inst) {
				return false
			}
		}
	}
	return true
}

func interfaceByName(ifaces []HalInterface, name string) (HalInterface, bool) {
	for _, i := range ifaces {
		if i.Name == name {
			return i, true
		}
	}
	return HalInterface{}, false
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func sepolicyListed(v Version, supported []VersionRange) bool {
	for _, r := range supported {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

func providedVersions(hals []ManifestHal) []Version {
	var vs []Version
	for _, h := range hals {
		vs = append(vs, h.Versions...)
	}
	return vs
}
