package snapkeeper

import "context"

// Connector is the surface of the cloud provider used by a Rotation.
// Every call may fail; errors that should abort the whole run are
// returned as *FatalError.
//
// GetTags and ListVolumes must drop provider reserved tags (for AWS,
// keys starting with "aws:") so the rest of the package only ever
// sees user tags.
type Connector interface {
	ListVolumes(ctx context.Context, filter Filter) ([]Volume, error)
	ListSnapshots(ctx context.Context, volumeID string) ([]Snapshot, error)
	GetTags(ctx context.Context, resourceID string) (map[string]string, error)
	CreateSnapshot(ctx context.Context, volumeID, description string) (Snapshot, error)
	SetTags(ctx context.Context, resourceID string, tags map[string]string) error
	DeleteSnapshot(ctx context.Context, snapshotID string) error
}

// Notifier publishes a message to a topic. Delivery is the notifier's
// concern; a Rotation logs and otherwise ignores publish errors.
type Notifier interface {
	Publish(ctx context.Context, topic, subject, message string) error
}
