package snapkeeper

import (
	"fmt"
	"time"
)

// Volume is a block storage volume that can be snapshotted. It is
// read only for the duration of a run.
type Volume struct {
	// ID is the provider's volume identifier (e.g., vol-0123456789abcdef0)
	ID string

	// InstanceID is the instance the volume is attached to. It is
	// empty when the volume is detached.
	InstanceID string

	// Tags holds the user defined tags of the volume. Provider
	// reserved tags are stripped by the Connector.
	Tags map[string]string
}

// SnapshotState is the provider defined lifecycle state of a snapshot.
type SnapshotState string

const (
	SnapshotPending   SnapshotState = "pending"
	SnapshotAvailable SnapshotState = "available"
	SnapshotError     SnapshotState = "error"
)

// Snapshot is a point in time copy of a volume as reported by the
// Connector.
type Snapshot struct {
	ID          string
	VolumeID    string
	StartTime   time.Time
	Description string
	Tags        map[string]string
	State       SnapshotState
}

// SnapshotRef is enough of a snapshot to log and report on it.
type SnapshotRef struct {
	ID          string
	Description string
}

// RetentionPolicy is the number of most recent managed snapshots to
// keep per volume.
type RetentionPolicy struct {
	KeepCount int
}

// Period selects the rotation schedule a run belongs to. Each period
// keeps its own set of snapshots with its own description prefix and
// keep count.
type Period string

const (
	PeriodNone  Period = ""
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Periods lists the supported rotation periods in schedule order.
var Periods = []Period{PeriodDay, PeriodWeek, PeriodMonth}

// ParsePeriod converts a string such as "day" into a Period.
func ParsePeriod(s string) (p Period, err error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	}
	return p, fmt.Errorf("unknown period %q: use day, week or month", s)
}

// Prefix returns the description prefix for snapshots of this period.
func (p Period) Prefix() string {
	if p == PeriodNone {
		return "snapshot"
	}
	return string(p) + "_snapshot"
}

// Filter selects volumes by provider specific criteria, for EC2
// these are DescribeVolumes filter names and their allowed values.
type Filter map[string][]string
