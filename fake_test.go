package snapkeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inconshreveable/log15"
)

var errBoom = errors.New("boom")

// baseTime is the clock of the fake connector. Prior snapshots in tests
// are placed before it, snapshots created by a run after it.
var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeConnector is an in-memory Connector. Errors can be injected per
// volume, resource or snapshot.
type fakeConnector struct {
	mu        sync.Mutex
	volumes   []Volume
	snapshots map[string]Snapshot
	tags      map[string]map[string]string
	now       time.Time
	seq       int

	listVolumesErr   error
	listSnapshotsErr map[string]error
	getTagsErr       map[string]error
	createErr        map[string]error
	setTagsErr       map[string]error
	deleteErr        map[string]error

	deleted []string
	calls   []string
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		snapshots:        make(map[string]Snapshot),
		tags:             make(map[string]map[string]string),
		now:              baseTime,
		listSnapshotsErr: make(map[string]error),
		getTagsErr:       make(map[string]error),
		createErr:        make(map[string]error),
		setTagsErr:       make(map[string]error),
		deleteErr:        make(map[string]error),
	}
}

func (f *fakeConnector) addVolume(vol Volume) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, vol)
	if vol.Tags != nil {
		f.tags[vol.ID] = vol.Tags
	}
}

// addSnapshot stores a snapshot that existed before the run, age before
// the fake clock.
func (f *fakeConnector) addSnapshot(id, volumeID, description string, age time.Duration) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := Snapshot{
		ID:          id,
		VolumeID:    volumeID,
		StartTime:   f.now.Add(-age),
		Description: description,
		State:       SnapshotAvailable,
	}
	f.snapshots[id] = snap
	return snap
}

// snapshotsOf returns the IDs of volumeID's snapshots, oldest first.
func (f *fakeConnector) snapshotsOf(volumeID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var snaps []Snapshot
	for _, s := range f.snapshots {
		if s.VolumeID == volumeID {
			snaps = append(snaps, s)
		}
	}
	sortOldestFirst(snaps)
	ids := make([]string, 0, len(snaps))
	for _, s := range snaps {
		ids = append(ids, s.ID)
	}
	return ids
}

func (f *fakeConnector) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeConnector) ListVolumes(ctx context.Context, filter Filter) ([]Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListVolumes")
	if f.listVolumesErr != nil {
		return nil, f.listVolumesErr
	}
	return append([]Volume(nil), f.volumes...), nil
}

func (f *fakeConnector) ListSnapshots(ctx context.Context, volumeID string) ([]Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListSnapshots %s", volumeID)
	if err := f.listSnapshotsErr[volumeID]; err != nil {
		return nil, err
	}
	var out []Snapshot
	for _, s := range f.snapshots {
		if s.VolumeID == volumeID {
			s.Tags = f.tags[s.ID]
			out = append(out, s)
		}
	}
	// map order is random, the pruner must not depend on input order
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeConnector) GetTags(ctx context.Context, resourceID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetTags %s", resourceID)
	if err := f.getTagsErr[resourceID]; err != nil {
		return nil, err
	}
	return mergeTags(f.tags[resourceID]), nil
}

func (f *fakeConnector) CreateSnapshot(ctx context.Context, volumeID, description string) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateSnapshot %s", volumeID)
	if err := f.createErr[volumeID]; err != nil {
		return Snapshot{}, err
	}
	f.seq++
	f.now = f.now.Add(time.Minute)
	snap := Snapshot{
		ID:          fmt.Sprintf("snap-new-%03d", f.seq),
		VolumeID:    volumeID,
		StartTime:   f.now,
		Description: description,
		State:       SnapshotPending,
	}
	f.snapshots[snap.ID] = snap
	return snap, nil
}

func (f *fakeConnector) SetTags(ctx context.Context, resourceID string, tags map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetTags %s", resourceID)
	if err := f.setTagsErr[resourceID]; err != nil {
		return err
	}
	f.tags[resourceID] = mergeTags(f.tags[resourceID], tags)
	return nil
}

func (f *fakeConnector) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteSnapshot %s", snapshotID)
	if err := f.deleteErr[snapshotID]; err != nil {
		return err
	}
	if _, ok := f.snapshots[snapshotID]; !ok {
		return fmt.Errorf("snapshot %s does not exist", snapshotID)
	}
	delete(f.snapshots, snapshotID)
	f.deleted = append(f.deleted, snapshotID)
	return nil
}

type publication struct {
	topic, subject, message string
}

// recordingNotifier keeps every published message in order.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []publication
	err  error
}

func (n *recordingNotifier) Publish(ctx context.Context, topic, subject, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, publication{topic: topic, subject: subject, message: message})
	return nil
}

func discardLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

// testRotation builds a Rotation over conn with pacing disabled.
func testRotation(conn Connector, notifier Notifier, period Period, keep int) (*Rotation, error) {
	pause := time.Duration(0)
	topic := "arn:aws:sns:eu-west-1:123456789012:snapshots"
	subject := "Snapshots"
	logger := discardLogger()
	return New(&RotationInput{
		Connector: conn,
		Notifier:  notifier,
		Topic:     &topic,
		Subject:   &subject,
		Period:    &period,
		KeepCount: &keep,
		Pause:     &pause,
		Logger:    &logger,
	})
}
