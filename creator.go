package snapkeeper

import (
	"context"

	"github.com/inconshreveable/log15"
)

// nameTag is the tag holding an instance's display name.
const nameTag = "Name"

// Creator makes one snapshot for a volume and copies the volume's
// tags onto it.
type Creator struct {
	conn   Connector
	tags   *TagPropagator
	naming Naming
	log    log15.Logger
}

// NewCreator returns a Creator that names snapshots using naming.
func NewCreator(conn Connector, tags *TagPropagator, naming Naming, logger log15.Logger) *Creator {
	return &Creator{conn: conn, tags: tags, naming: naming, log: logger}
}

// CreateSnapshot snapshots vol and returns a reference to the new
// snapshot. Failing to read the volume or instance tags, or to create
// the snapshot, returns a *CreateError. Failing to tag the new snapshot
// is logged and otherwise ignored.
func (c *Creator) CreateSnapshot(ctx context.Context, vol Volume) (ref SnapshotRef, err error) {
	c.log.Debug("creating snapshot", "volume", vol.ID, "instance", vol.InstanceID)
	volumeTags, err := c.conn.GetTags(ctx, vol.ID)
	if err != nil {
		return ref, &CreateError{VolumeID: vol.ID, Op: "reading volume tags", Err: err}
	}

	instanceName, err := c.instanceName(ctx, vol.InstanceID)
	if err != nil {
		return ref, &CreateError{VolumeID: vol.ID, Op: "reading instance tags", Err: err}
	}

	description := c.naming.Describe(instanceName, vol.InstanceID, vol.ID)
	snap, err := c.conn.CreateSnapshot(ctx, vol.ID, description)
	if err != nil {
		return ref, &CreateError{VolumeID: vol.ID, Op: "creating snapshot", Err: err}
	}

	tags := mergeTags(volumeTags, c.naming.Marker())
	c.tags.Propagate(ctx, tags, snap.ID)

	c.log.Info("snapshot created", "snapshot", snap.ID, "description", description, "tags", tags)
	return SnapshotRef{ID: snap.ID, Description: description}, nil
}

// instanceName returns the Name tag of instanceID or an empty string
// for detached volumes.
func (c *Creator) instanceName(ctx context.Context, instanceID string) (string, error) {
	if instanceID == "" {
		return "", nil
	}
	tags, err := c.conn.GetTags(ctx, instanceID)
	if err != nil {
		return "", err
	}
	return tags[nameTag], nil
}
