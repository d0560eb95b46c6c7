package snapkeeper

import (
	"context"

	"github.com/inconshreveable/log15"
)

// TagPropagator copies tags onto a resource through the Connector.
// Tagging is best effort: a failed write is logged and never fails
// the snapshot it belongs to.
type TagPropagator struct {
	conn Connector
	log  log15.Logger
}

// NewTagPropagator returns a TagPropagator writing through conn.
func NewTagPropagator(conn Connector, logger log15.Logger) *TagPropagator {
	return &TagPropagator{conn: conn, log: logger}
}

// Propagate writes tags onto resourceID. It does nothing when either
// the tags or the resource are empty. Writing the same mapping twice
// leaves the resource unchanged.
func (tp *TagPropagator) Propagate(ctx context.Context, tags map[string]string, resourceID string) {
	if resourceID == "" || len(tags) == 0 {
		return
	}
	if err := tp.conn.SetTags(ctx, resourceID, tags); err != nil {
		tp.log.Warn("unable to tag resource", "resource", resourceID, "tags", len(tags), "error", err)
		return
	}
	tp.log.Debug("tagged resource", "resource", resourceID, "tags", len(tags))
}
