package snapkeeper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"golang.org/x/time/rate"
)

// A Rotation snapshots every volume matching a filter and prunes the
// older snapshots of each volume down to a keep count. Create a
// RotationInput and pass it to this package's New method to get a new
// Rotation, then call its Start method once per scheduled run.
//
// A Rotation holds no state between runs and may be started again.
// It is not safe to Start the same Rotation concurrently.
type Rotation struct {
	conn     Connector
	creator  *Creator
	pruner   *Pruner
	reporter *Reporter
	metrics  *Metrics
	limiter  *rate.Limiter
	log      log15.Logger

	period Period
	policy RetentionPolicy
	filter Filter
	naming Naming
	now    func() time.Time
}

// Start lists the volumes matching the Rotation's filter, snapshots and
// prunes each of them, then publishes the run summary. The returned
// error is only non-nil when the run was aborted, either because the
// connector failed fatally or because ctx was cancelled. Failures of
// single volumes are reported in the RunReport instead.
func (r *Rotation) Start(ctx context.Context) (report *RunReport, err error) {
	r.log.Info("finding volumes", "filter", formatFilter(r.filter))
	vols, err := r.conn.ListVolumes(ctx, r.filter)
	if err != nil {
		if !IsFatal(err) {
			err = Fatal("listing volumes", err)
		}
		r.log.Error("unable to list volumes, aborting run", "error", err)
		report = r.newReport()
		report.FinishedAt = r.now()
		r.metrics.Observe(report, err)
		return report, err
	}
	r.log.Info("found volumes", "count", len(vols))

	report, err = r.Run(ctx, vols)
	r.metrics.Observe(report, err)
	if err != nil {
		r.log.Error("run aborted", "report", report.ID, "error", err)
		return report, err
	}
	r.reporter.BuildAndSend(ctx, report)
	return report, nil
}

// Run snapshots and prunes vols one after another. A volume whose
// snapshot could not be created is never pruned. No volume's failure
// stops the others from being processed; only a fatal connector error
// or a cancelled ctx ends the run early, in which case the partial
// report is returned along with the error.
func (r *Rotation) Run(ctx context.Context, vols []Volume) (*RunReport, error) {
	report := r.newReport()
	log := r.log.New("run", report.ID, "period", string(r.period))
	log.Info("starting run", "volumes", len(vols), "keep", r.policy.KeepCount)

	for _, vol := range vols {
		if err := r.pace(ctx); err != nil {
			report.FinishedAt = r.now()
			return report, fmt.Errorf("waiting to process volume %s: %w", vol.ID, err)
		}
		out := r.processVolume(ctx, log, vol)
		report.merge(out)
		if err := fatalOf(out); err != nil {
			report.FinishedAt = r.now()
			return report, err
		}
	}

	report.FinishedAt = r.now()
	log.Info("finished run", "created", report.Created, "create_failed", report.CreateFailed,
		"deleted", report.Deleted, "errors", len(report.Errors))
	return report, nil
}

// processVolume creates a snapshot of vol and, only if that worked,
// prunes its older snapshots.
func (r *Rotation) processVolume(ctx context.Context, log log15.Logger, vol Volume) (out VolumeOutcome) {
	out.VolumeID = vol.ID
	ref, err := r.creator.CreateSnapshot(ctx, vol)
	if err != nil {
		log.Error("error processing volume", "volume", vol.ID, "error", err)
		out.State = StateCreateFailed
		out.Err = err
		return out
	}
	out.State = StateCreated
	out.Created = ref

	out.Prune = r.pruner.Prune(ctx, vol, r.policy, ref)
	out.State = StatePruned
	if err := out.Prune.Err(); err != nil {
		log.Error("error pruning volume", "volume", vol.ID, "deleted", out.Prune.DeletedCount(), "error", err)
	}
	return out
}

// pace blocks until the next volume may be processed.
func (r *Rotation) pace(ctx context.Context) error {
	if r.limiter == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

func (r *Rotation) newReport() *RunReport {
	return &RunReport{
		ID:        uuid.NewString(),
		Period:    r.period,
		Filter:    r.filter,
		StartedAt: r.now(),
	}
}

// fatalOf returns the first fatal error of a volume outcome.
func fatalOf(out VolumeOutcome) error {
	if IsFatal(out.Err) {
		return out.Err
	}
	for _, err := range out.Prune.Errors {
		if IsFatal(err) {
			return err
		}
	}
	return nil
}

// setDefaultLogger just sets up a logger for the Rotation
// set to Info and stdout by default.
func (r *Rotation) setDefaultLogger() {
	r.log = log15.New()
	r.log.SetHandler(
		log15.LvlFilterHandler(
			log15.LvlInfo,
			log15.StreamHandler(os.Stdout, log15.LogfmtFormat()),
		),
	)
}

// RotationInput provides configuration inputs for creating a new
// Rotation.
type RotationInput struct {
	// Connector gives access to volumes and snapshots, usually an
	// EC2Connector.
	//
	// Connector is a required field
	Connector Connector

	// Notifier receives the run summary and the error report.
	// When nil no notifications are sent.
	Notifier Notifier

	// Topic the notifications are published to, e.g. an SNS topic
	// ARN. When empty no notifications are sent.
	Topic *string

	// Subject of the summary notification. The error notification
	// uses the same subject with " / ERROR with AWS Snapshot" added.
	// Default: "EBS snapshot rotation"
	Subject *string

	// Period of the rotation. It selects the description prefix of
	// new snapshots, e.g. "day_snapshot".
	// Default: no period, prefix "snapshot"
	Period *Period

	// KeepCount is the number of most recent managed snapshots kept
	// per volume. Must not be negative.
	// Default: 7
	KeepCount *int

	// Filter selects the volumes to snapshot. An empty filter selects
	// every volume in the region.
	Filter Filter

	// Pause between two volumes to stay clear of API rate limits.
	// Zero disables pacing.
	// Default: 3s
	Pause *time.Duration

	// LegacyPrefixes are additional description prefixes whose
	// snapshots are pruned as if they were made by this Rotation.
	LegacyPrefixes []string

	// MarkerTag, when set, is written onto every new snapshot and
	// required on every snapshot before it can be pruned.
	//
	// Snapshots taken before the marker was turned on do not carry it
	// and are never pruned, including this period's own. After turning
	// it on a volume keeps KeepCount marked snapshots on top of all
	// unmarked ones until those are removed by hand.
	MarkerTag *string

	// Metrics receives the result of every run. Optional.
	Metrics *Metrics

	// Rotation uses log15 (https://github.com/inconshreveable/log15)
	// as an opinioned logging framework. If no Logger is provided
	// Rotation will set up its own handler to stdout.
	Logger *log15.Logger
}

// New returns a Rotation whose Start method performs one snapshot
// rotation. This method will set any default values for any property
// that was not specified in the RotationInput object.
func New(input *RotationInput) (rot *Rotation, err error) {
	var r Rotation
	r.now = time.Now

	if input.Connector == nil {
		err = errors.New("Connector is required")
		return &r, err
	}
	r.conn = input.Connector

	if input.Logger == nil {
		r.setDefaultLogger()
	} else {
		r.log = *input.Logger
	}

	DefaultPeriod := PeriodNone
	if input.Period == nil {
		input.Period = &DefaultPeriod
	}
	r.period = *input.Period

	DefaultKeepCount := 7
	if input.KeepCount == nil {
		input.KeepCount = &DefaultKeepCount
	}
	if *input.KeepCount < 0 {
		err = fmt.Errorf("KeepCount must not be negative, got %d", *input.KeepCount)
		return &r, err
	}
	r.policy = RetentionPolicy{KeepCount: *input.KeepCount}

	DefaultPause := 3 * time.Second
	if input.Pause == nil {
		input.Pause = &DefaultPause
	}
	if *input.Pause > 0 {
		r.limiter = rate.NewLimiter(rate.Every(*input.Pause), 1)
	}

	DefaultSubject := "EBS snapshot rotation"
	if input.Subject == nil {
		input.Subject = &DefaultSubject
	}
	var topic string
	if input.Topic != nil {
		topic = *input.Topic
	}

	var marker string
	if input.MarkerTag != nil {
		marker = *input.MarkerTag
	}

	r.filter = input.Filter
	r.metrics = input.Metrics
	r.naming = Naming{
		Prefix:    r.period.Prefix(),
		Aliases:   input.LegacyPrefixes,
		MarkerTag: marker,
	}
	r.log = r.log.New("prefix", r.naming.Prefix)
	r.creator = NewCreator(r.conn, NewTagPropagator(r.conn, r.log), r.naming, r.log)
	r.pruner = NewPruner(r.conn, r.naming, r.log)
	r.reporter = NewReporter(input.Notifier, topic, *input.Subject, r.log)
	return &r, err
}

// Period returns the period the Rotation was created for.
func (r *Rotation) Period() Period { return r.period }

// Policy returns the retention policy applied to every volume.
func (r *Rotation) Policy() RetentionPolicy { return r.policy }
