//go:build linux

// Package caps drops Linux capabilities from the bounding set inside
// the command container's entrypoint, between NAT installation and
// the final exec of the user command (§4.C.2, §9 Design Notes: "a
// single atomic handoff with no suspension points between capability
// drop and exec"). Once dropped from the bounding set, NET_ADMIN
// cannot be regained even by a process that re-elevates to root
// inside the container.
package caps

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// capNetAdmin is CAP_NET_ADMIN's numeric value on Linux.
const capNetAdmin = 12

// DropNetAdmin removes CAP_NET_ADMIN from the calling process's
// capability bounding set via prctl(PR_CAPBSET_DROP, ...). It must be
// called after the in-sandbox NAT script has run and before the user
// command is exec'd; there must be no suspension point between this
// call and the exec that follows it in the caller.
func DropNetAdmin() error {
	if err := unix.Prctl(unix.PR_CAPBSET_DROP, capNetAdmin, 0, 0, 0); err != nil {
		return fmt.Errorf("dropping CAP_NET_ADMIN from bounding set: %w", err)
	}
	return nil
}
