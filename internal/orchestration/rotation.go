package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lucasew/snaprotate/internal/model"
	"github.com/lucasew/snaprotate/internal/notify"
	"github.com/lucasew/snaprotate/internal/retention"
	"github.com/lucasew/snaprotate/internal/snapshot"
)

const (
	StepLookupInstance   = "lookup-instance"
	StepListSnapshots    = "list-snapshots"
	StepFilterByPrefix   = "filter-by-prefix"
	StepCreateSnapshot   = "create-snapshot"
	StepEnforceRetention = "enforce-retention"
)

const DoneLine = ">>> DONE"

const DefaultNotifyTimeout = 30 * time.Second

// SnapshotStore is implemented by snapshot.Repository.
type SnapshotStore interface {
	FindInstanceByName(ctx context.Context, name string) (model.Instance, error)
	ListSnapshots(ctx context.Context, inst model.Instance) ([]model.Snapshot, error)
	CreateSnapshot(ctx context.Context, inst model.Instance) (snapshot.Created, error)
	DeleteSnapshot(ctx context.Context, id model.ID) error
}

type RotationConfig struct {
	InstanceName    string
	Prefix          string
	NotifyOnFailure bool

	// NotifyTimeout bounds delivery of the final report. Zero means
	// DefaultNotifyTimeout.
	NotifyTimeout time.Duration
}

// Rotation runs one snapshot rotation: lookup, list, filter, create,
// enforce retention, notify. Nothing is shared between runs.
type Rotation struct {
	store    SnapshotStore
	policy   retention.Policy
	notifier notify.Notifier
	logger   *slog.Logger
	cfg      RotationConfig
	now      func() time.Time
}

// NewRotation wires a rotation. notifier may be nil.
func NewRotation(store SnapshotStore, policy retention.Policy, notifier notify.Notifier, logger *slog.Logger, cfg RotationConfig) *Rotation {
	return &Rotation{
		store:    store,
		policy:   policy,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run performs the rotation and then notifies. The returned error is the
// run's outcome; notification failures are logged and never change it.
func (r *Rotation) Run(ctx context.Context) (notify.Report, error) {
	report := notify.Report{
		Instance:  r.cfg.InstanceName,
		Policy:    string(r.policy.Kind()),
		StartedAt: r.now(),
	}

	var (
		inst    model.Instance
		all     []model.Snapshot
		managed []model.Snapshot
	)

	pipeline := NewPipeline("rotate "+r.cfg.InstanceName, r.logger).
		AddStep(StepLookupInstance, "Getting instance by name", func(ctx context.Context) ([]string, error) {
			found, err := r.store.FindInstanceByName(ctx, r.cfg.InstanceName)
			if err != nil {
				return nil, err
			}
			inst = found
			return nil, nil
		}).
		AddStep(StepListSnapshots, "Getting instance snapshots", func(ctx context.Context) ([]string, error) {
			listed, err := r.store.ListSnapshots(ctx, inst)
			if err != nil {
				return nil, err
			}
			all = listed
			return nil, nil
		}).
		AddStep(StepFilterByPrefix, "", func(ctx context.Context) ([]string, error) {
			managed = snapshot.FilterByPrefix(all, r.cfg.Prefix)
			return []string{fmt.Sprintf("Found %d managed snapshot(s) out of %d", len(managed), len(all))}, nil
		}).
		AddStep(StepCreateSnapshot, "Creating snapshot", func(ctx context.Context) ([]string, error) {
			created, err := r.store.CreateSnapshot(ctx, inst)
			if err != nil {
				return nil, err
			}
			report.Created = created.Name
			return []string{fmt.Sprintf("Requested snapshot %s (action %s, %s)", created.Name, created.Action.ID, created.Action.Status)}, nil
		}).
		AddStep(StepEnforceRetention, "Deleting old snapshots", func(ctx context.Context) ([]string, error) {
			deleted, lines, err := r.enforce(ctx, r.policy.Plan(managed))
			report.Deleted = deleted
			return lines, err
		})

	log, err := pipeline.Run(ctx)
	if err == nil {
		log = log.With(DoneLine)
		report.Status = notify.StatusSuccess
	} else {
		report.Status = notify.StatusFailure
		report.Error = err.Error()
	}
	report.Log = log.Lines()
	report.FinishedAt = r.now()

	r.notify(ctx, report)
	return report, err
}

// enforce deletes the planned snapshots one at a time; the first failure
// stops the remaining deletes.
func (r *Rotation) enforce(ctx context.Context, plan retention.Plan) ([]string, []string, error) {
	if len(plan.Delete) == 0 {
		return nil, []string{"No snapshots to delete"}, nil
	}

	var deleted, lines []string
	for _, s := range plan.Delete {
		if err := r.store.DeleteSnapshot(ctx, s.ID); err != nil {
			return deleted, lines, fmt.Errorf("%d of %d deleted: %w", len(deleted), len(plan.Delete), err)
		}
		deleted = append(deleted, s.Name)
		lines = append(lines, fmt.Sprintf("Deleted snapshot %s (%s)", s.Name, s.ID))
	}
	return deleted, lines, nil
}

func (r *Rotation) notify(ctx context.Context, report notify.Report) {
	if r.notifier == nil {
		return
	}
	if report.Status == notify.StatusFailure && !r.cfg.NotifyOnFailure {
		r.logger.Info("skipping notification for failed run")
		return
	}
	// A cancelled run still reports how far it got.
	timeout := r.cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := r.notifier.Notify(ctx, report); err != nil {
		r.logger.Warn("failed to deliver notification", "notifier", r.notifier.Name(), "error", err)
	}
}

// DryRun is what a rotation would do right now.
type DryRun struct {
	Instance model.Instance
	Total    int
	Managed  []model.Snapshot
	Plan     retention.Plan
}

// Plan performs the read-only part of a rotation. Nothing is created,
// deleted or notified.
func (r *Rotation) Plan(ctx context.Context) (DryRun, error) {
	inst, err := r.store.FindInstanceByName(ctx, r.cfg.InstanceName)
	if err != nil {
		return DryRun{}, &StepError{Step: StepLookupInstance, Err: err}
	}
	all, err := r.store.ListSnapshots(ctx, inst)
	if err != nil {
		return DryRun{}, &StepError{Step: StepListSnapshots, Err: err}
	}
	managed := snapshot.FilterByPrefix(all, r.cfg.Prefix)
	return DryRun{
		Instance: inst,
		Total:    len(all),
		Managed:  managed,
		Plan:     r.policy.Plan(managed),
	}, nil
}

// FailedStep returns the name of the step that aborted err's run, if any.
func FailedStep(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}
