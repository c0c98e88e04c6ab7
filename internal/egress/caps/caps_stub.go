//go:build !linux

package caps

import "errors"

// DropNetAdmin is only meaningful on Linux, where the command
// container's entrypoint actually runs; on any other build target it
// reports that the operation is unsupported rather than silently
// doing nothing (fail closed, matching §4.C.2's no-safe-fallback
// stance).
func DropNetAdmin() error {
	return errors.New("caps.DropNetAdmin: capability bounding-set drop is only supported on linux")
}
