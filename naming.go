package snapkeeper

import (
	"fmt"
	"strings"
)

// descriptionSep separates the fields of a managed snapshot description.
const descriptionSep = "--"

// Naming is the convention that decides which snapshots belong to a
// rotation. Snapshots are described as
//
//	<prefix>--<instance name>--<instance id>--<volume id>
//
// and only snapshots matching Prefix or one of the Aliases are ever
// considered for deletion.
type Naming struct {
	// Prefix is the description prefix written on new snapshots
	Prefix string

	// Aliases are older prefixes that are still pruned, for example
	// after renaming a period.
	Aliases []string

	// MarkerTag, when set, is written onto new snapshots with Prefix
	// as its value and is required on any snapshot before it can be
	// pruned. Older snapshots without the marker are left alone.
	MarkerTag string
}

// Describe builds the description for a new snapshot. Missing
// instance data yields empty fields rather than an error so detached
// volumes are still snapshotted.
func (n Naming) Describe(instanceName, instanceID, volumeID string) string {
	return fmt.Sprintf("%s%s%s%s%s%s%s",
		n.Prefix, descriptionSep,
		instanceName, descriptionSep,
		instanceID, descriptionSep,
		volumeID,
	)
}

// Managed reports whether snap was made under this naming convention.
func (n Naming) Managed(snap Snapshot) bool {
	if n.MarkerTag != "" && snap.Tags[n.MarkerTag] != n.Prefix {
		return false
	}
	for _, prefix := range n.prefixes() {
		if snap.Description == prefix || strings.HasPrefix(snap.Description, prefix+descriptionSep) {
			return true
		}
	}
	return false
}

// Marker returns the tags that identify a snapshot as managed, or nil
// when no marker tag is configured.
func (n Naming) Marker() map[string]string {
	if n.MarkerTag == "" {
		return nil
	}
	return map[string]string{n.MarkerTag: n.Prefix}
}

func (n Naming) prefixes() []string {
	var all []string
	for _, p := range append([]string{n.Prefix}, n.Aliases...) {
		if p != "" {
			all = append(all, p)
		}
	}
	return dedupeString(all)
}
