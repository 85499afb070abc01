package report

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// ContentType of generated reports.
const ContentType = "text/markdown; charset=utf-8"

// Publisher copies a finished report to remote storage.
type Publisher interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Publish uploads the report file at file under prefix and returns the
// location reported by the publisher.
func Publish(ctx context.Context, p Publisher, prefix, file string) (string, error) {
	body, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read report: %w", err)
	}
	key := path.Join(prefix, filepath.Base(file))
	loc, err := p.Put(ctx, key, body, ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to publish report %s: %w", key, err)
	}
	return loc, nil
}
