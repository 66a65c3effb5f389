package vintf

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a VINTF "major.minor" pair, used for HAL versions, sepolicy
// versions and the AVB meta version.
type Version struct {
	Major uint
	Minor uint
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ParseVersion reads "major.minor".
func ParseVersion(text string) (Version, error) {
	major, minor, ok := splitDotted(text)
	if !ok {
		return Version{}, fmt.Errorf("malformed version %q", text)
	}
	return Version{Major: major, Minor: minor}, nil
}

// VersionRange is a half-open requirement "major.min-max". A plain
// "major.minor" parses as the degenerate range min == max.
type VersionRange struct {
	Major    uint
	MinMinor uint
	MaxMinor uint
}

func (r VersionRange) String() string {
	if r.MinMinor == r.MaxMinor {
		return fmt.Sprintf("%d.%d", r.Major, r.MinMinor)
	}
	return fmt.Sprintf("%d.%d-%d", r.Major, r.MinMinor, r.MaxMinor)
}

// ParseVersionRange reads "major.min-max" or "major.minor".
func ParseVersionRange(text string) (VersionRange, error) {
	base, maxPart, hasMax := strings.Cut(text, "-")
	major, minMinor, ok := splitDotted(base)
	if !ok {
		return VersionRange{}, fmt.Errorf("malformed version range %q", text)
	}
	r := VersionRange{Major: major, MinMinor: minMinor, MaxMinor: minMinor}
	if hasMax {
		maxMinor, err := parseUint(maxPart)
		if err != nil || maxMinor < minMinor {
			return VersionRange{}, fmt.Errorf("malformed version range %q", text)
		}
		r.MaxMinor = maxMinor
	}
	return r, nil
}

// Contains reports whether v falls inside the range.
func (r VersionRange) Contains(v Version) bool {
	return v.Major == r.Major && r.MinMinor <= v.Minor && v.Minor <= r.MaxMinor
}

// SupportedBy reports whether an implementation at v satisfies the
// requirement: same major, and at least the minimum minor. Higher minors
// are backwards compatible.
func (r VersionRange) SupportedBy(v Version) bool {
	return v.Major == r.Major && v.Minor >= r.MinMinor
}

func splitDotted(text string) (major, minor uint, ok bool) {
	majorPart, minorPart, found := strings.Cut(text, ".")
	if !found {
		return 0, 0, false
	}
	maj, err1 := parseUint(majorPart)
	min, err2 := parseUint(minorPart)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return maj, min, true
}

func parseUint(text string) (uint, error) {
	n, err := strconv.ParseUint(text, 10, 32)
	return uint(n), err
}
