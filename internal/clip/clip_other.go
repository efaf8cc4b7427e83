//go:build !linux

package clip

import "errors"

// New reports that there is no X selection to read on this platform.
func New() (Reader, error) {
	return nil, errors.New("clipboard: X11 selections are only supported on linux")
}
