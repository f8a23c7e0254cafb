package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/lucasew/snaprotate/internal/artifacts"
	"github.com/lucasew/snaprotate/internal/markdown"
)

const archiveTimeFormat = "2006-01-02T15-04-05.000Z"

// Archive uploads the sanitized report once per run: a JSON object for
// tooling and an HTML page next to it for people browsing the bucket.
type Archive struct {
	storage artifacts.Storage
}

func NewArchive(storage artifacts.Storage) *Archive {
	return &Archive{storage: storage}
}

func (a *Archive) Name() string {
	return "archive:" + a.storage.Type()
}

func (a *Archive) Notify(ctx context.Context, report Report) error {
	data, err := json.MarshalIndent(report.Sanitized(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := ArchiveKey(report)
	if err := a.storage.Save(ctx, key, "application/json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("archive report %s: %w", key, err)
	}

	page, err := markdown.Document("snapshot rotation of "+report.Instance, report.Markdown())
	if err != nil {
		return err
	}
	htmlKey := strings.TrimSuffix(key, ".json") + ".html"
	if err := a.storage.Save(ctx, htmlKey, "text/html; charset=utf-8", bytes.NewReader(page)); err != nil {
		return fmt.Errorf("archive report %s: %w", htmlKey, err)
	}
	return nil
}

// ArchiveKey is "<instance>/<start time>.json".
func ArchiveKey(report Report) string {
	instance := report.Instance
	if instance == "" {
		instance = "unknown"
	}
	return path.Join(instance, report.StartedAt.UTC().Format(archiveTimeFormat)+".json")
}
