//go:build !linux

package passthrough

import "errors"

// ProbeHwbinder always fails off Linux; the hwbinder driver only
// exists there.
func ProbeHwbinder() error {
	return errors.New("hwbinder is only available on linux")
}
