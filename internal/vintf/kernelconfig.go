package vintf

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedConfig reports an unparsable kernel config fragment.
var ErrMalformedConfig = errors.New("malformed kernel config")

// ConfigValueType discriminates the typed value of a kernel config.
type ConfigValueType int

const (
	ConfigTristate ConfigValueType = iota
	ConfigInteger
	ConfigRange
	ConfigString
)

func (t ConfigValueType) String() string {
	switch t {
	case ConfigTristate:
		return "tristate"
	case ConfigInteger:
		return "int"
	case ConfigRange:
		return "range"
	case ConfigString:
		return "string"
	}
	return "unknown"
}

// Tristate is a kernel feature state: built-in, module, or absent.
type Tristate string

const (
	TristateYes    Tristate = "y"
	TristateModule Tristate = "m"
	TristateNo     Tristate = "n"
)

// ConfigValue is the typed right-hand side of a CONFIG_ line.
type ConfigValue struct {
	Type     ConfigValueType
	Tristate Tristate
	Integer  int64
	RangeLo  uint64
	RangeHi  uint64
	Str      string
}

func (v ConfigValue) String() string {
	switch v.Type {
	case ConfigTristate:
		return string(v.Tristate)
	case ConfigInteger:
		return strconv.FormatInt(v.Integer, 10)
	case ConfigRange:
		return fmt.Sprintf("%d-%d", v.RangeLo, v.RangeHi)
	default:
		return v.Str
	}
}

// KernelConfig is one CONFIG_<KEY> requirement.
type KernelConfig struct {
	Key   string
	Value ConfigValue
}

// ConditionedConfig is a config list gated by an optional condition.
// A nil Condition marks the common (unconditional) set.
type ConditionedConfig struct {
	Condition *KernelConfig
	Configs   []KernelConfig
}

const (
	configPrefix = "android-base-"
	configSuffix = ".cfg"
	// BaseConfigName is the required unconditioned fragment.
	BaseConfigName = "android-base.cfg"
)

// IsCommonConfig reports whether path names the unconditioned fragment.
func IsCommonConfig(path string) bool {
	return filepath.Base(path) == BaseConfigName
}

// GenerateCondition derives the gating config from a fragment filename:
// android-base-<tag>.cfg becomes CONFIG_<TAG> = y, with '-' mapped to
// '_' and letters uppercased. Any other character is rejected.
func GenerateCondition(path string) (*KernelConfig, error) {
	fname := filepath.Base(path)
	if len(fname) <= len(configPrefix)+len(configSuffix) ||
		!strings.HasPrefix(fname, configPrefix) ||
		!strings.HasSuffix(fname, configSuffix) {
		return nil, fmt.Errorf("%w: %q must match android-base(-[0-9a-zA-Z-]+)?.cfg",
			ErrMalformedConfig, fname)
	}
	tag := fname[len(configPrefix) : len(fname)-len(configSuffix)]
	var sb strings.Builder
	sb.WriteString("CONFIG_")
	for _, r := range tag {
		switch {
		case r == '-':
			sb.WriteByte('_')
		case r >= 'a' && r <= 'z':
			sb.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
		default:
			return nil, fmt.Errorf("%w: %q is not a valid config fragment name",
				ErrMalformedConfig, fname)
		}
	}
	return &KernelConfig{
		Key:   sb.String(),
		Value: ConfigValue{Type: ConfigTristate, Tristate: TristateYes},
	}, nil
}

var configLine = regexp.MustCompile(`^(CONFIG_[A-Za-z0-9_]+)=(.*)$`)

// ParseConfigFile reads one fragment. Blank lines and #-comments are
// skipped; every other line must be CONFIG_<KEY>=<value>.
func ParseConfigFile(path string) ([]KernelConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var configs []KernelConfig
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := configLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: %s:%d: %q", ErrMalformedConfig, path, lineNo, line)
		}
		value, err := parseConfigValue(m[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: unknown value for key %q: %q",
				ErrMalformedConfig, path, lineNo, m[1], m[2])
		}
		configs = append(configs, KernelConfig{Key: m[1], Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

func parseConfigValue(text string) (ConfigValue, error) {
	switch text {
	case "y", "m", "n":
		return ConfigValue{Type: ConfigTristate, Tristate: Tristate(text)}, nil
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return ConfigValue{Type: ConfigString, Str: text[1 : len(text)-1]}, nil
	}
	if n, err := strconv.ParseInt(text, 0, 64); err == nil {
		return ConfigValue{Type: ConfigInteger, Integer: n}, nil
	}
	if lo, hi, ok := strings.Cut(text, "-"); ok {
		l, err1 := strconv.ParseUint(lo, 0, 64)
		h, err2 := strconv.ParseUint(hi, 0, 64)
		if err1 == nil && err2 == nil && l <= h {
			return ConfigValue{Type: ConfigRange, RangeLo: l, RangeHi: h}, nil
		}
	}
	return ConfigValue{}, fmt.Errorf("unknown value type %q", text)
}

// ParseKernelConfigFiles reads a ':'-separated path list. Exactly one
// path must be the common android-base.cfg; the rest become conditioned
// sets. The common set is always first in the result.
func ParseKernelConfigFiles(paths string) ([]ConditionedConfig, error) {
	common := ConditionedConfig{}
	foundCommon := false
	var conditioned []ConditionedConfig

	for _, path := range strings.Split(paths, ":") {
		if path == "" {
			continue
		}
		if IsCommonConfig(path) {
			if foundCommon {
				return nil, fmt.Errorf("%w: more than one %s in %q",
					ErrMalformedConfig, BaseConfigName, paths)
			}
			configs, err := ParseConfigFile(path)
			if err != nil {
				return nil, err
			}
			common.Configs = configs
			foundCommon = true
			continue
		}
		condition, err := GenerateCondition(path)
		if err != nil {
			return nil, err
		}
		configs, err := ParseConfigFile(path)
		if err != nil {
			return nil, err
		}
		conditioned = append(conditioned, ConditionedConfig{Condition: condition, Configs: configs})
	}

	if !foundCommon {
		return nil, fmt.Errorf("%w: no %s found in %q", ErrMalformedConfig, BaseConfigName, paths)
	}
	return append([]ConditionedConfig{common}, conditioned...), nil
}
