package snapkeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/inconshreveable/log15"
)

// PruneResult is the outcome of pruning one volume. Deleted lists the
// snapshots removed, oldest first, and Errors every failure met along
// the way. Both can be non-empty when pruning partially succeeded.
type PruneResult struct {
	VolumeID string
	Deleted  []SnapshotRef
	Errors   []error
}

// DeletedCount is the number of snapshots removed.
func (r PruneResult) DeletedCount() int {
	return len(r.Deleted)
}

// DeletedDescriptions returns the descriptions of the removed
// snapshots in deletion order.
func (r PruneResult) DeletedDescriptions() (descs []string) {
	for _, ref := range r.Deleted {
		descs = append(descs, ref.Description)
	}
	return descs
}

// Err joins all recorded errors, or returns nil if there were none.
func (r PruneResult) Err() error {
	return errors.Join(r.Errors...)
}

// Pruner deletes the oldest managed snapshots of a volume until no
// more than the policy's keep count remain.
type Pruner struct {
	conn   Connector
	naming Naming
	log    log15.Logger
}

// NewPruner returns a Pruner that only touches snapshots matching
// naming.
func NewPruner(conn Connector, naming Naming, logger log15.Logger) *Pruner {
	return &Pruner{conn: conn, naming: naming, log: logger}
}

// Prune lists the snapshots of vol and deletes the oldest managed
// ones beyond policy.KeepCount. The snapshot referenced by created,
// made earlier in the same run, counts toward the total but is never
// deleted. A failed delete does not stop the remaining deletes unless
// the connector reports a fatal error.
func (p *Pruner) Prune(ctx context.Context, vol Volume, policy RetentionPolicy, created SnapshotRef) (result PruneResult) {
	result.VolumeID = vol.ID
	snaps, err := p.conn.ListSnapshots(ctx, vol.ID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("listing snapshots for volume %s: %w", vol.ID, err))
		return result
	}

	managed := p.managed(vol.ID, snaps)
	excess := len(managed) - policy.KeepCount
	if excess <= 0 {
		p.log.Debug("nothing to prune", "volume", vol.ID, "managed", len(managed), "keep", policy.KeepCount)
		return result
	}

	candidates := withoutSnapshot(managed, created.ID)
	sortOldestFirst(candidates)
	if excess > len(candidates) {
		excess = len(candidates)
	}
	p.log.Info("pruning snapshots", "volume", vol.ID, "managed", len(managed), "keep", policy.KeepCount, "excess", excess)

	for _, snap := range candidates[:excess] {
		p.log.Info("deleting snapshot", "snapshot", snap.ID, "description", snap.Description, "start", snap.StartTime)
		if err := p.conn.DeleteSnapshot(ctx, snap.ID); err != nil {
			result.Errors = append(result.Errors, &DeleteError{
				SnapshotID:  snap.ID,
				Description: snap.Description,
				Err:         err,
			})
			if IsFatal(err) {
				return result
			}
			continue
		}
		result.Deleted = append(result.Deleted, SnapshotRef{ID: snap.ID, Description: snap.Description})
	}
	return result
}

// managed returns the snapshots of volumeID that match the naming
// convention. Everything else is left alone regardless of age.
func (p *Pruner) managed(volumeID string, snaps []Snapshot) (out []Snapshot) {
	for _, snap := range snaps {
		if snap.VolumeID != volumeID || !p.naming.Managed(snap) {
			p.log.Debug("skipping unmanaged snapshot", "snapshot", snap.ID, "description", snap.Description)
			continue
		}
		out = append(out, snap)
	}
	return out
}

// withoutSnapshot returns snaps minus the snapshot with the given ID.
// An empty ID removes nothing.
func withoutSnapshot(snaps []Snapshot, id string) []Snapshot {
	if id == "" {
		return snaps
	}
	out := make([]Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		if snap.ID == id {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// sortOldestFirst orders snapshots by start time, then by ID so that
// snapshots started in the same instant keep a stable order.
func sortOldestFirst(snaps []Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].StartTime.Equal(snaps[j].StartTime) {
			return snaps[i].StartTime.Before(snaps[j].StartTime)
		}
		return snaps[i].ID < snaps[j].ID
	})
}
