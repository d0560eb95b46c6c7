package snapkeeper

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/inconshreveable/log15"
)

// fatalErrorCodes are AWS error codes after which no further call in
// the run can be expected to succeed.
var fatalErrorCodes = []string{
	"AuthFailure",
	"UnauthorizedOperation",
	"InvalidClientTokenId",
	"ExpiredToken",
	"RequestExpired",
	"SignatureDoesNotMatch",
	"OptInRequired",
	"NoCredentialProviders",
	request.ErrCodeRequestError,
}

// snapshotStates maps EC2 snapshot states onto SnapshotState.
var snapshotStates = map[string]SnapshotState{
	ec2.SnapshotStatePending:   SnapshotPending,
	ec2.SnapshotStateCompleted: SnapshotAvailable,
	ec2.SnapshotStateError:     SnapshotError,
}

// EC2Connector is a Connector backed by the EC2 API of one region.
type EC2Connector struct {
	svc      ec2iface.EC2API
	log      log15.Logger
	maxPages int
}

// NewEC2Connector returns an EC2Connector using the credentials and
// region of sess.
func NewEC2Connector(sess *session.Session, logger log15.Logger) *EC2Connector {
	return newEC2Connector(ec2.New(sess), logger)
}

func newEC2Connector(svc ec2iface.EC2API, logger log15.Logger) *EC2Connector {
	return &EC2Connector{svc: svc, log: logger, maxPages: 50}
}

// ListVolumes describes all volumes matching filter including
// pagination handling.
func (c *EC2Connector) ListVolumes(ctx context.Context, filter Filter) (vols []Volume, err error) {
	input := ec2.DescribeVolumesInput{
		Filters: ec2Filters(filter),
	}
	pageNum := 0
	err = c.svc.DescribeVolumesPagesWithContext(ctx, &input,
		func(page *ec2.DescribeVolumesOutput, lastPage bool) bool {
			pageNum++
			c.log.Debug("handling volume results", "page", pageNum, "volumes", len(page.Volumes))
			for _, v := range page.Volumes {
				vols = append(vols, volumeFromEC2(v))
			}
			return pageNum < c.maxPages
		})
	if err != nil {
		return nil, classify("describing volumes", err)
	}
	return vols, nil
}

// ListSnapshots describes all snapshots owned by this account that
// were taken from volumeID. Unlike ListVolumes it never returns a
// partial list: hitting the page limit is an error.
func (c *EC2Connector) ListSnapshots(ctx context.Context, volumeID string) (snaps []Snapshot, err error) {
	input := ec2.DescribeSnapshotsInput{
		OwnerIds: aws.StringSlice([]string{"self"}),
		Filters: []*ec2.Filter{{
			Name:   aws.String("volume-id"),
			Values: aws.StringSlice([]string{volumeID}),
		}},
	}
	pageNum := 0
	truncated := false
	err = c.svc.DescribeSnapshotsPagesWithContext(ctx, &input,
		func(page *ec2.DescribeSnapshotsOutput, lastPage bool) bool {
			pageNum++
			c.log.Debug("handling snapshot results", "volume", volumeID, "page", pageNum)
			for _, s := range page.Snapshots {
				snaps = append(snaps, snapshotFromEC2(s))
			}
			if pageNum >= c.maxPages && !lastPage {
				truncated = true
				return false
			}
			return true
		})
	if err != nil {
		return nil, classify("describing snapshots", err)
	}
	// pruning a partial list could delete snapshots that are not the oldest
	if truncated {
		return nil, fmt.Errorf("describing snapshots of %s: more than %d pages", volumeID, c.maxPages)
	}
	return snaps, nil
}

// GetTags returns the user tags of resourceID. Tags starting with
// "aws:" are dropped. An empty resourceID has no tags.
func (c *EC2Connector) GetTags(ctx context.Context, resourceID string) (map[string]string, error) {
	if resourceID == "" {
		return map[string]string{}, nil
	}
	input := ec2.DescribeTagsInput{
		Filters: []*ec2.Filter{{
			Name:   aws.String("resource-id"),
			Values: aws.StringSlice([]string{resourceID}),
		}},
	}
	var raw []*ec2.Tag
	pageNum := 0
	err := c.svc.DescribeTagsPagesWithContext(ctx, &input,
		func(page *ec2.DescribeTagsOutput, lastPage bool) bool {
			pageNum++
			for _, td := range page.Tags {
				raw = append(raw, &ec2.Tag{Key: td.Key, Value: td.Value})
			}
			return pageNum < c.maxPages
		})
	if err != nil {
		return nil, classify("describing tags of "+resourceID, err)
	}
	return userTags(raw), nil
}

// CreateSnapshot starts a snapshot of volumeID. The returned snapshot
// is usually still pending.
func (c *EC2Connector) CreateSnapshot(ctx context.Context, volumeID, description string) (Snapshot, error) {
	input := ec2.CreateSnapshotInput{
		VolumeId:    aws.String(volumeID),
		Description: aws.String(description),
	}
	out, err := c.svc.CreateSnapshotWithContext(ctx, &input)
	if err != nil {
		return Snapshot{}, classify("creating snapshot of "+volumeID, err)
	}
	return snapshotFromEC2(out), nil
}

// SetTags adds tags to resourceID, overwriting existing values of the
// same keys.
func (c *EC2Connector) SetTags(ctx context.Context, resourceID string, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}
	input := ec2.CreateTagsInput{
		Resources: aws.StringSlice([]string{resourceID}),
		Tags:      ec2Tags(tags),
	}
	if _, err := c.svc.CreateTagsWithContext(ctx, &input); err != nil {
		return classify("tagging "+resourceID, err)
	}
	return nil
}

// DeleteSnapshot deletes snapshotID.
func (c *EC2Connector) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	input := ec2.DeleteSnapshotInput{
		SnapshotId: aws.String(snapshotID),
	}
	if _, err := c.svc.DeleteSnapshotWithContext(ctx, &input); err != nil {
		return classify("deleting snapshot "+snapshotID, err)
	}
	return nil
}

func volumeFromEC2(v *ec2.Volume) Volume {
	vol := Volume{
		ID:   aws.StringValue(v.VolumeId),
		Tags: userTags(v.Tags),
	}
	for _, att := range v.Attachments {
		if att.InstanceId != nil {
			vol.InstanceID = aws.StringValue(att.InstanceId)
			break
		}
	}
	return vol
}

func snapshotFromEC2(s *ec2.Snapshot) Snapshot {
	return Snapshot{
		ID:          aws.StringValue(s.SnapshotId),
		VolumeID:    aws.StringValue(s.VolumeId),
		StartTime:   aws.TimeValue(s.StartTime),
		Description: aws.StringValue(s.Description),
		Tags:        userTags(s.Tags),
		State:       snapshotStates[aws.StringValue(s.State)],
	}
}

// classify wraps err with op and marks it fatal when its AWS error
// code means the rest of the run would fail the same way.
func classify(op string, err error) error {
	if aerr, ok := err.(awserr.Error); ok && containsString(fatalErrorCodes, aerr.Code()) {
		return Fatal(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
