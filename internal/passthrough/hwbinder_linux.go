//go:build linux

package passthrough

import "golang.org/x/sys/unix"

const hwbinderDevice = "/dev/hwbinder"

// ProbeHwbinder reports whether the hwbinder kernel driver is present
// and accessible, which decides whether binderized transport is
// available at all or every service must be passthrough.
func ProbeHwbinder() error {
	return unix.Access(hwbinderDevice, unix.R_OK|unix.W_OK)
}
