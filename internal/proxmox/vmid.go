package proxmox

import (
	"context"
)

// MinVMID is the floor for allocated resource IDs; lower IDs are reserved
// by the control plane.
const MinVMID = 100

// NextVMID returns the smallest unused resource ID at or above MinVMID.
// Allocation is not reserved: two concurrent callers can race, so creation
// failures from ID collisions surface as task failures.
func NextVMID(ctx context.Context, rm ResourceManager) (int, error) {
	ids, err := rm.ListVMIDs(ctx)
	if err != nil {
		return 0, err
	}

	used := make(map[int]bool, len(ids))
	for _, id := range ids {
		used[id] = true
	}

	candidate := MinVMID
	for used[candidate] {
		candidate++
	}
	return candidate, nil
}
