package snapkeeper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inconshreveable/log15"
)

// errorSubjectSuffix is appended to the notification subject of the
// error report so operators can filter on it.
const errorSubjectSuffix = " / ERROR with AWS Snapshot"

// VolumeState is where a volume ended up in a run.
type VolumeState int

const (
	// StateCreated means a snapshot was made and pruning has not
	// run yet.
	StateCreated VolumeState = iota
	StateCreateFailed
	StatePruned
)

func (s VolumeState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateCreateFailed:
		return "create-failed"
	case StatePruned:
		return "pruned"
	}
	return fmt.Sprintf("VolumeState(%d)", int(s))
}

// VolumeOutcome is the result of processing one volume.
type VolumeOutcome struct {
	VolumeID string
	State    VolumeState
	Created  SnapshotRef
	Prune    PruneResult
	Err      error
}

// RunReport accumulates the outcome of one run. It is owned by the
// Rotation that built it and is never persisted.
type RunReport struct {
	ID         string
	Period     Period
	Filter     Filter
	StartedAt  time.Time
	FinishedAt time.Time

	Created      int
	CreateFailed int
	Deleted      int
	DeleteFailed int

	CreatedDescriptions []string
	DeletedDescriptions []string
	Errors              []string

	Volumes []VolumeOutcome
}

// HasErrors reports whether any volume failed to snapshot or prune.
func (r *RunReport) HasErrors() bool {
	return len(r.Errors) > 0
}

// merge folds the outcome of one volume into the report.
func (r *RunReport) merge(out VolumeOutcome) {
	r.Volumes = append(r.Volumes, out)
	if out.State == StateCreateFailed {
		r.CreateFailed++
		r.Errors = append(r.Errors, out.Err.Error())
		return
	}
	r.Created++
	r.CreatedDescriptions = append(r.CreatedDescriptions, out.Created.Description)
	r.Deleted += out.Prune.DeletedCount()
	r.DeletedDescriptions = append(r.DeletedDescriptions, out.Prune.DeletedDescriptions()...)
	for _, err := range out.Prune.Errors {
		if _, ok := err.(*DeleteError); ok {
			r.DeleteFailed++
		}
		r.Errors = append(r.Errors, err.Error())
	}
}

// Summary renders the report as the plain text body of the run
// notification.
func (r *RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Started taking %s snapshots at %s.\n\n", r.periodName(), r.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Finding volumes that match the requested filter: %s\n\n", formatFilter(r.Filter))
	b.WriteString("List of snapshots created:\n")
	for _, desc := range r.CreatedDescriptions {
		b.WriteString(desc + "\n")
	}
	b.WriteString("\nList of snapshots deleted:\n")
	for _, desc := range r.DeletedDescriptions {
		b.WriteString(desc + "\n")
	}
	if r.HasErrors() {
		b.WriteString("\nErrors:\n")
		for _, msg := range r.Errors {
			b.WriteString(msg + "\n")
		}
	}
	fmt.Fprintf(&b, "\nTotal snapshots created: %d", r.Created)
	fmt.Fprintf(&b, "\nTotal snapshot create failures: %d", r.CreateFailed)
	fmt.Fprintf(&b, "\nTotal snapshot errors: %d", len(r.Errors))
	fmt.Fprintf(&b, "\nTotal snapshots deleted: %d\n\n", r.Deleted)
	fmt.Fprintf(&b, "Finished making snapshots at %s.", r.FinishedAt.Format("02-01-2006 15:04:05"))
	return b.String()
}

// ErrorSummary renders only the per volume errors of the report.
func (r *RunReport) ErrorSummary() string {
	return "Error in processing volumes:\n" + strings.Join(r.Errors, "\n") + "\n"
}

func (r *RunReport) periodName() string {
	if r.Period == PeriodNone {
		return "scheduled"
	}
	return string(r.Period)
}

func formatFilter(filter Filter) string {
	if len(filter) == 0 {
		return "(all volumes)"
	}
	names := make([]string, 0, len(filter))
	for name := range filter {
		names = append(names, name)
	}
	sort.Strings(names)
	var parts []string
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(filter[name], ",")))
	}
	return strings.Join(parts, " ")
}

// Reporter turns a RunReport into notifications.
type Reporter struct {
	notifier Notifier
	topic    string
	subject  string
	log      log15.Logger
}

// NewReporter returns a Reporter publishing to topic. A nil notifier
// or an empty topic disables publishing; summaries are still logged.
func NewReporter(notifier Notifier, topic, subject string, logger log15.Logger) *Reporter {
	return &Reporter{notifier: notifier, topic: topic, subject: subject, log: logger}
}

// BuildAndSend logs the report summary and publishes it. When the
// report has errors a separate error notification is published first.
// It returns the summary text.
func (rp *Reporter) BuildAndSend(ctx context.Context, report *RunReport) string {
	summary := report.Summary()
	rp.log.Info("run summary", "report", report.ID, "created", report.Created,
		"create_failed", report.CreateFailed, "deleted", report.Deleted, "errors", len(report.Errors))
	rp.log.Debug(summary)

	if rp.notifier == nil || rp.topic == "" {
		rp.log.Debug("no notification topic configured, skipping publish")
		return summary
	}
	if report.HasErrors() {
		rp.publish(ctx, rp.subject+errorSubjectSuffix, report.ErrorSummary())
	}
	rp.publish(ctx, rp.subject, summary)
	return summary
}

func (rp *Reporter) publish(ctx context.Context, subject, message string) {
	if err := rp.notifier.Publish(ctx, rp.topic, subject, message); err != nil {
		rp.log.Error("unable to publish notification", "topic", rp.topic, "subject", subject, "error", err)
		return
	}
	rp.log.Info("published notification", "topic", rp.topic, "subject", subject)
}
