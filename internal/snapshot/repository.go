// Package snapshot lists, creates and deletes instance snapshots through the cloud API.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lucasew/snaprotate/internal/model"
)

const (
	DefaultPrefix   = "gh-actions-do-snapshot"
	DefaultPageSize = 200
	DefaultMaxPages = 100
)

var (
	ErrInstanceNotFound = errors.New("instance not found")
	ErrTooManyPages     = errors.New("pagination did not terminate")
)

// API is the part of cloud.Client the repository needs.
type API interface {
	Get(ctx context.Context, target string, out any) error
	Post(ctx context.Context, target string, body, out any) error
	Delete(ctx context.Context, target string) error
}

type Options struct {
	Prefix   string
	PageSize int
	MaxPages int
	Logger   *slog.Logger
	// Now supplies the uniqueness token for new snapshot names.
	Now func() time.Time
}

type Repository struct {
	api      API
	prefix   string
	pageSize int
	maxPages int
	logger   *slog.Logger
	now      func() time.Time
}

// Created describes an accepted snapshot creation request. The snapshot is
// built asynchronously by the provider and is not guaranteed to show up in
// a listing made during the same run.
type Created struct {
	Name   string
	Action model.Action
}

func NewRepository(api API, opts Options) *Repository {
	r := &Repository{
		api:      api,
		prefix:   opts.Prefix,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if r.prefix == "" {
		r.prefix = DefaultPrefix
	}
	if r.pageSize <= 0 {
		r.pageSize = DefaultPageSize
	}
	if r.maxPages <= 0 {
		r.maxPages = DefaultMaxPages
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func (r *Repository) Prefix() string {
	return r.prefix
}

// FindInstanceByName scans every page of instances for an exact name match.
func (r *Repository) FindInstanceByName(ctx context.Context, name string) (model.Instance, error) {
	var found *model.Instance
	err := r.paginate(ctx, r.firstPage("droplets"), func(target string) (*model.Links, error) {
		var resp model.InstancesResponse
		if err := r.api.Get(ctx, target, &resp); err != nil {
			return nil, fmt.Errorf("list instances: %w", err)
		}
		for i := range resp.Instances {
			if resp.Instances[i].Name == name {
				found = &resp.Instances[i]
				return nil, nil
			}
		}
		return resp.Links, nil
	})
	if err != nil {
		return model.Instance{}, err
	}
	if found == nil {
		return model.Instance{}, fmt.Errorf("%w: %q", ErrInstanceNotFound, name)
	}
	return *found, nil
}

// ListSnapshots returns every snapshot of the instance, following
// pagination links until exhausted, in provider order.
func (r *Repository) ListSnapshots(ctx context.Context, inst model.Instance) ([]model.Snapshot, error) {
	var all []model.Snapshot
	first := r.firstPage(fmt.Sprintf("droplets/%s/snapshots", url.PathEscape(inst.ID.String())))
	err := r.paginate(ctx, first, func(target string) (*model.Links, error) {
		var resp model.SnapshotsResponse
		if err := r.api.Get(ctx, target, &resp); err != nil {
			return nil, fmt.Errorf("list snapshots of instance %s: %w", inst.ID, err)
		}
		all = append(all, resp.Snapshots...)
		return resp.Links, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// CreateSnapshot asks the provider to snapshot the instance and returns as
// soon as the request is acknowledged.
func (r *Repository) CreateSnapshot(ctx context.Context, inst model.Instance) (Created, error) {
	name := r.NextName()
	var resp model.ActionResponse
	target := fmt.Sprintf("droplets/%s/actions", url.PathEscape(inst.ID.String()))
	body := model.CreateSnapshotRequest{Type: "snapshot", Name: name}
	if err := r.api.Post(ctx, target, body, &resp); err != nil {
		return Created{}, fmt.Errorf("create snapshot %s of instance %s: %w", name, inst.ID, err)
	}
	r.logger.Debug("snapshot requested", "instance", inst.Name, "snapshot", name, "action_id", resp.Action.ID, "status", resp.Action.Status)
	return Created{Name: name, Action: resp.Action}, nil
}

// DeleteSnapshot removes one snapshot. The endpoint answers with an empty
// body, which is never parsed.
func (r *Repository) DeleteSnapshot(ctx context.Context, id model.ID) error {
	if err := r.api.Delete(ctx, "snapshots/"+url.PathEscape(id.String())); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

// NextName builds a managed snapshot name from the prefix and the current
// time in milliseconds.
func (r *Repository) NextName() string {
	return fmt.Sprintf("%s-%d", r.prefix, r.now().UnixMilli())
}

// FilterByPrefix keeps the snapshots whose name contains prefix, in order.
func FilterByPrefix(snapshots []model.Snapshot, prefix string) []model.Snapshot {
	matched := make([]model.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if strings.Contains(s.Name, prefix) {
			matched = append(matched, s)
		}
	}
	return matched
}

func (r *Repository) firstPage(path string) string {
	return path + "?per_page=" + strconv.Itoa(r.pageSize)
}

// paginate calls fetch with first and then with every next link it reports.
// A nil *Links ends the walk.
func (r *Repository) paginate(ctx context.Context, first string, fetch func(target string) (*model.Links, error)) error {
	seen := make(map[string]struct{})
	target := first
	for page := 1; target != ""; page++ {
		if page > r.maxPages {
			return fmt.Errorf("%w: more than %d pages", ErrTooManyPages, r.maxPages)
		}
		if _, ok := seen[target]; ok {
			return fmt.Errorf("%w: page link %s repeated", ErrTooManyPages, target)
		}
		seen[target] = struct{}{}

		if err := ctx.Err(); err != nil {
			return err
		}

		links, err := fetch(target)
		if err != nil {
			return err
		}
		r.logger.Debug("fetched page", "page", page, "target", target)
		target = links.NextPage()
	}
	return nil
}
