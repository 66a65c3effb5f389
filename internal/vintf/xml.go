package vintf

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// MetaVersion is the schema version stamped on emitted documents.
const MetaVersion = "1.0"

// The xml* types mirror the document shape; converters map them onto
// the model.

type xmlInterface struct {
	Name      string   `xml:"name"`
	Instances []string `xml:"instance"`
}

type xmlTransport struct {
	Arch string `xml:"arch,attr,omitempty"`
	Kind string `xml:",chardata"`
}

type xmlManifestHal struct {
	Format     string         `xml:"format,attr"`
	Name       string         `xml:"name"`
	Transport  xmlTransport   `xml:"transport"`
	Versions   []string       `xml:"version"`
	Interfaces []xmlInterface `xml:"interface"`
}

type xmlManifestSepolicy struct {
	Version string `xml:"version"`
}

type xmlVndk struct {
	Version   string   `xml:"version"`
	Libraries []string `xml:"library"`
}

type xmlAvb struct {
	VbmetaVersion string `xml:"vbmeta-version"`
}

type xmlManifestXmlFile struct {
	Name    string `xml:"name"`
	Version string `xml:"version"`
}

type xmlManifest struct {
	XMLName  xml.Name             `xml:"manifest"`
	Version  string               `xml:"version,attr"`
	Type     string               `xml:"type,attr"`
	Hals     []xmlManifestHal     `xml:"hal"`
	Sepolicy *xmlManifestSepolicy `xml:"sepolicy"`
	Vndks    []xmlVndk            `xml:"vndk"`
	Avb      *xmlAvb              `xml:"avb"`
	XmlFiles []xmlManifestXmlFile `xml:"xmlfile"`
}

type xmlKernelConfigValue struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type xmlKernelConfig struct {
	Key   string               `xml:"key"`
	Value xmlKernelConfigValue `xml:"value"`
}

type xmlKernelConditions struct {
	Configs []xmlKernelConfig `xml:"config"`
}

type xmlMatrixKernel struct {
	Version    string               `xml:"version,attr"`
	Conditions *xmlKernelConditions `xml:"conditions"`
	Configs    []xmlKernelConfig    `xml:"config"`
}

type xmlMatrixHal struct {
	Format     string         `xml:"format,attr"`
	Optional   bool           `xml:"optional,attr"`
	Name       string         `xml:"name"`
	Versions   []string       `xml:"version"`
	Interfaces []xmlInterface `xml:"interface"`
}

type xmlMatrixSepolicy struct {
	KernelSepolicyVersion uint     `xml:"kernel-sepolicy-version"`
	SepolicyVersions      []string `xml:"sepolicy-version"`
}

type xmlMatrixXmlFile struct {
	Format   string `xml:"format,attr,omitempty"`
	Optional bool   `xml:"optional,attr"`
	Name     string `xml:"name"`
	Version  string `xml:"version"`
	Path     string `xml:"path,omitempty"`
}

type xmlMatrix struct {
	XMLName  xml.Name           `xml:"compatibility-matrix"`
	Version  string             `xml:"version,attr"`
	Type     string             `xml:"type,attr"`
	Hals     []xmlMatrixHal     `xml:"hal"`
	Kernels  []xmlMatrixKernel  `xml:"kernel"`
	Sepolicy *xmlMatrixSepolicy `xml:"sepolicy"`
	Avb      *xmlAvb            `xml:"avb"`
	Vndk     *xmlVndk           `xml:"vndk"`
	XmlFiles []xmlMatrixXmlFile `xml:"xmlfile"`
}

func parseSchemaType(text string) (SchemaType, error) {
	switch SchemaType(text) {
	case SchemaDevice, SchemaFramework:
		return SchemaType(text), nil
	}
	return "", fmt.Errorf("unknown schema type %q", text)
}

// ParseHalManifest reads a <manifest> document.
func ParseHalManifest(data []byte) (*HalManifest, error) {
	var doc xmlManifest
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	typ, err := parseSchemaType(doc.Type)
	if err != nil {
		return nil, err
	}
	m := &HalManifest{Type: typ}
	for _, h := range doc.Hals {
		hal := ManifestHal{
			Format: HalFormat(h.Format),
			Name:   h.Name,
			Transport: Transport{
				Kind: TransportKind(h.Transport.Kind),
				Arch: h.Transport.Arch,
			},
			Interfaces: fromXMLInterfaces(h.Interfaces),
		}
		for _, v := range h.Versions {
			ver, err := ParseVersion(v)
			if err != nil {
				return nil, fmt.Errorf("hal %s: %w", h.Name, err)
			}
			hal.Versions = append(hal.Versions, ver)
		}
		if !m.Add(hal) {
			return nil, fmt.Errorf("hal %s rejected by manifest", h.Name)
		}
	}
	if doc.Sepolicy != nil {
		v, err := ParseVersion(doc.Sepolicy.Version)
		if err != nil {
			return nil, fmt.Errorf("sepolicy: %w", err)
		}
		m.SepolicyVersion = v
	}
	for _, v := range doc.Vndks {
		m.Vndks = append(m.Vndks, Vndk{Version: v.Version, Libraries: v.Libraries})
	}
	if doc.Avb != nil {
		v, err := ParseVersion(doc.Avb.VbmetaVersion)
		if err != nil {
			return nil, fmt.Errorf("avb: %w", err)
		}
		m.AvbMetaVersion = &v
	}
	for _, f := range doc.XmlFiles {
		v, err := ParseVersion(f.Version)
		if err != nil {
			return nil, fmt.Errorf("xmlfile %s: %w", f.Name, err)
		}
		m.XmlFiles = append(m.XmlFiles, ManifestXmlFile{Name: f.Name, Version: v})
	}
	return m, nil
}

// WriteHalManifest emits m as a <manifest> document.
func WriteHalManifest(w io.Writer, m *HalManifest) error {
	doc := xmlManifest{Version: MetaVersion, Type: string(m.Type)}
	for _, name := range m.Names() {
		for _, hal := range m.ByName(name) {
			x := xmlManifestHal{
				Format: string(hal.Format),
				Name:   hal.Name,
				Transport: xmlTransport{
					Arch: hal.Transport.Arch,
					Kind: string(hal.Transport.Kind),
				},
				Interfaces: toXMLInterfaces(hal.Interfaces),
			}
			for _, v := range hal.Versions {
				x.Versions = append(x.Versions, v.String())
			}
			doc.Hals = append(doc.Hals, x)
		}
	}
	if m.Type == SchemaDevice {
		doc.Sepolicy = &xmlManifestSepolicy{Version: m.SepolicyVersion.String()}
	}
	for _, v := range m.Vndks {
		doc.Vndks = append(doc.Vndks, xmlVndk{Version: v.Version, Libraries: v.Libraries})
	}
	if m.AvbMetaVersion != nil {
		doc.Avb = &xmlAvb{VbmetaVersion: m.AvbMetaVersion.String()}
	}
	for _, f := range m.XmlFiles {
		doc.XmlFiles = append(doc.XmlFiles, xmlManifestXmlFile{Name: f.Name, Version: f.Version.String()})
	}
	return writeDoc(w, doc)
}

// ParseCompatibilityMatrix reads a <compatibility-matrix> document.
func ParseCompatibilityMatrix(data []byte) (*CompatibilityMatrix, error) {
	var doc xmlMatrix
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing compatibility matrix: %w", err)
	}
	typ, err := parseSchemaType(doc.Type)
	if err != nil {
		return nil, err
	}
	m := &CompatibilityMatrix{Type: typ}
	for _, h := range doc.Hals {
		hal := MatrixHal{
			Format:     HalFormat(h.Format),
			Optional:   h.Optional,
			Name:       h.Name,
			Interfaces: fromXMLInterfaces(h.Interfaces),
		}
		for _, v := range h.Versions {
			r, err := ParseVersionRange(v)
			if err != nil {
				return nil, fmt.Errorf("hal %s: %w", h.Name, err)
			}
			hal.VersionRanges = append(hal.VersionRanges, r)
		}
		if !m.Add(hal) {
			return nil, fmt.Errorf("hal %s rejected by matrix", h.Name)
		}
	}
	for _, k := range doc.Kernels {
		minLts, err := semver.NewVersion(k.Version)
		if err != nil {
			return nil, fmt.Errorf("kernel version %q: %w", k.Version, err)
		}
		kernel := MatrixKernel{MinLTS: minLts}
		if k.Conditions != nil {
			kernel.Conditions, err = fromXMLConfigs(k.Conditions.Configs)
			if err != nil {
				return nil, err
			}
		}
		kernel.Configs, err = fromXMLConfigs(k.Configs)
		if err != nil {
			return nil, err
		}
		m.Kernels = append(m.Kernels, kernel)
	}
	if doc.Sepolicy != nil {
		m.Sepolicy.KernelSepolicyVersion = doc.Sepolicy.KernelSepolicyVersion
		for _, v := range doc.Sepolicy.SepolicyVersions {
			r, err := ParseVersionRange(v)
			if err != nil {
				return nil, fmt.Errorf("sepolicy: %w", err)
			}
			m.Sepolicy.SepolicyVersions = append(m.Sepolicy.SepolicyVersions, r)
		}
	}
	if doc.Avb != nil {
		v, err := ParseVersion(doc.Avb.VbmetaVersion)
		if err != nil {
			return nil, fmt.Errorf("avb: %w", err)
		}
		m.AvbMetaVersion = v
	}
	if doc.Vndk != nil {
		m.Vndk = Vndk{Version: doc.Vndk.Version, Libraries: doc.Vndk.Libraries}
	}
	for _, f := range doc.XmlFiles {
		r, err := ParseVersionRange(f.Version)
		if err != nil {
			return nil, fmt.Errorf("xmlfile %s: %w", f.Name, err)
		}
		m.XmlFiles = append(m.XmlFiles, MatrixXmlFile{
			Name:           f.Name,
			Format:         f.Format,
			Optional:       f.Optional,
			VersionRange:   r,
			OverriddenPath: f.Path,
		})
	}
	return m, nil
}

// WriteCompatibilityMatrix emits m as a <compatibility-matrix> document.
func WriteCompatibilityMatrix(w io.Writer, m *CompatibilityMatrix) error {
	return writeDoc(w, matrixToXML(m))
}

func matrixToXML(m *CompatibilityMatrix) xmlMatrix {
	doc := xmlMatrix{Version: MetaVersion, Type: string(m.Type)}
	for _, name := range m.Names() {
		for _, hal := range m.ByName(name) {
			x := xmlMatrixHal{
				Format:     string(hal.Format),
				Optional:   hal.Optional,
				Name:       hal.Name,
				Interfaces: toXMLInterfaces(hal.Interfaces),
			}
			for _, r := range hal.VersionRanges {
				x.Versions = append(x.Versions, r.String())
			}
			doc.Hals = append(doc.Hals, x)
		}
	}
	for _, k := range m.Kernels {
		x := xmlMatrixKernel{Version: k.MinLTS.String(), Configs: toXMLConfigs(k.Configs)}
		if len(k.Conditions) > 0 {
			x.Conditions = &xmlKernelConditions{Configs: toXMLConfigs(k.Conditions)}
		}
		doc.Kernels = append(doc.Kernels, x)
	}
	if m.Type == SchemaFramework {
		sep := &xmlMatrixSepolicy{KernelSepolicyVersion: m.Sepolicy.KernelSepolicyVersion}
		for _, r := range m.Sepolicy.SepolicyVersions {
			sep.SepolicyVersions = append(sep.SepolicyVersions, r.String())
		}
		doc.Sepolicy = sep
		doc.Avb = &xmlAvb{VbmetaVersion: m.AvbMetaVersion.String()}
	} else if len(m.Vndk.Libraries) > 0 || m.Vndk.Version != "" {
		doc.Vndk = &xmlVndk{Version: m.Vndk.Version, Libraries: m.Vndk.Libraries}
	}
	for _, f := range m.XmlFiles {
		doc.XmlFiles = append(doc.XmlFiles, xmlMatrixXmlFile{
			Format:   f.Format,
			Optional: f.Optional,
			Name:     f.Name,
			Version:  f.VersionRange.String(),
			Path:     f.OverriddenPath,
		})
	}
	return doc
}

func fromXMLInterfaces(xs []xmlInterface) []HalInterface {
	var out []HalInterface
	for _, x := range xs {
		out = append(out, HalInterface{Name: x.Name, Instances: x.Instances})
	}
	return out
}

func toXMLInterfaces(ifaces []HalInterface) []xmlInterface {
	var out []xmlInterface
	for _, i := range ifaces {
		out = append(out, xmlInterface{Name: i.Name, Instances: i.Instances})
	}
	return out
}

func fromXMLConfigs(xs []xmlKernelConfig) ([]KernelConfig, error) {
	var out []KernelConfig
	for _, x := range xs {
		value, err := parseTypedConfigValue(x.Value.Type, strings.TrimSpace(x.Value.Value))
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", x.Key, err)
		}
		out = append(out, KernelConfig{Key: x.Key, Value: value})
	}
	return out, nil
}

func parseTypedConfigValue(typ, text string) (ConfigValue, error) {
	switch typ {
	case "tristate":
		switch Tristate(text) {
		case TristateYes, TristateModule, TristateNo:
			return ConfigValue{Type: ConfigTristate, Tristate: Tristate(text)}, nil
		}
		return ConfigValue{}, fmt.Errorf("bad tristate %q", text)
	case "string":
		return ConfigValue{Type: ConfigString, Str: text}, nil
	case "int", "range":
		return parseConfigValue(text)
	}
	return ConfigValue{}, fmt.Errorf("unknown config value type %q", typ)
}

func toXMLConfigs(configs []KernelConfig) []xmlKernelConfig {
	var out []xmlKernelConfig
	for _, c := range configs {
		out = append(out, xmlKernelConfig{
			Key: c.Key,
			Value: xmlKernelConfigValue{
				Type:  c.Value.Type.String(),
				Value: c.Value.String(),
			},
		})
	}
	return out
}

func writeDoc(w io.Writer, doc interface{}) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return encodeDoc(w, doc)
}

func encodeDoc(w io.Writer, doc interface{}) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
