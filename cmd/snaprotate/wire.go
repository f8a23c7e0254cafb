package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lucasew/snaprotate/internal/artifacts"
	"github.com/lucasew/snaprotate/internal/cloud"
	"github.com/lucasew/snaprotate/internal/config"
	"github.com/lucasew/snaprotate/internal/netutil"
	"github.com/lucasew/snaprotate/internal/notify"
	"github.com/lucasew/snaprotate/internal/orchestration"
	"github.com/lucasew/snaprotate/internal/retention"
	"github.com/lucasew/snaprotate/internal/snapshot"
)

// buildRotation assembles a rotation from cfg. The returned cleanup releases
// notifier resources and must be called once the run is over.
func buildRotation(ctx context.Context, cfg *config.Config, logger *slog.Logger, withNotifiers bool) (*orchestration.Rotation, func(), error) {
	client, err := cloud.NewClient(cfg.Cloud.BaseURL, cfg.Cloud.APIToken, cfg.Cloud.RequestTimeout, cloud.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cloud client: %w", err)
	}

	repo := snapshot.NewRepository(client, snapshot.Options{
		Prefix:   cfg.Snapshot.Prefix,
		PageSize: cfg.Cloud.PageSize,
		MaxPages: cfg.Cloud.MaxPages,
		Logger:   logger,
	})

	policy, err := retention.New(retention.Kind(cfg.Snapshot.Policy), cfg.Snapshot.Keep)
	if err != nil {
		return nil, nil, err
	}

	var notifier notify.Notifier
	cleanup := func() {}
	if withNotifiers {
		multi, closeFn, err := buildNotifiers(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = closeFn
		if multi.Len() > 0 {
			notifier = multi
			logger.Debug("notifiers configured", "notifiers", multi.Name())
		}
	}

	rotation := orchestration.NewRotation(repo, policy, notifier, logger, orchestration.RotationConfig{
		InstanceName:    cfg.Instance.Name,
		Prefix:          repo.Prefix(),
		NotifyOnFailure: cfg.Notify.OnFailure,
		NotifyTimeout:   cfg.Notify.Timeout,
	})
	return rotation, cleanup, nil
}

func buildNotifiers(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*notify.Multi, func(), error) {
	var notifiers []notify.Notifier
	cleanup := func() {}

	if s := cfg.Notify.Slack; s.Enabled() {
		client := netutil.NewHTTPClient(cfg.Cloud.RequestTimeout, s.AllowPrivateNetwork)
		slack, err := notify.NewSlack(notify.SlackWebhookURL(s.WebhookURL, s.WebhookSecret), s.Channel, s.Username, client)
		if err != nil {
			return nil, nil, err
		}
		notifiers = append(notifiers, slack)
	}

	if g := cfg.Notify.GitHub; g.Enabled() {
		var key []byte
		if g.Token == "" {
			b, err := os.ReadFile(g.PrivateKey)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read private key: %w", err)
			}
			key = b
		}
		client := netutil.NewHTTPClient(cfg.Cloud.RequestTimeout, true)
		gh, err := notify.NewGitHub(g.Repo, g.Issue, g.Token, g.AppID, key, client)
		if err != nil {
			return nil, nil, err
		}
		notifiers = append(notifiers, gh)
	}

	if a := cfg.Notify.Archive; a.Enabled() {
		storage, closeFn, err := buildStorage(ctx, a)
		if err != nil {
			return nil, nil, err
		}
		cleanup = closeFn
		notifiers = append(notifiers, notify.NewArchive(storage))
	}

	return notify.NewMulti(logger, notifiers...), cleanup, nil
}

func buildStorage(ctx context.Context, a config.ArchiveConfig) (artifacts.Storage, func(), error) {
	switch a.Type {
	case "s3":
		s, err := artifacts.NewS3Storage(ctx, artifacts.S3Config{
			Endpoint:  a.Endpoint,
			Region:    a.Region,
			Bucket:    a.Bucket,
			Prefix:    a.Prefix,
			AccessKey: a.AccessKey,
			SecretKey: a.SecretKey,
			PathStyle: a.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "gcs":
		s, err := artifacts.NewGCSStorage(ctx, artifacts.GCSConfig{
			Bucket:          a.Bucket,
			Prefix:          a.Prefix,
			CredentialsFile: a.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive type: %s", a.Type)
	}
}
