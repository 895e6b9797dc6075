// Package cmd provides common initialization for the flowgate binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mbarbosa/flowgate/pkg/persistence"
	"github.com/mbarbosa/flowgate/pkg/persistence/file"
	"github.com/mbarbosa/flowgate/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence backend from the database URL scheme:
// postgres:// and postgresql:// use PostgreSQL, anything else is treated as a
// file path for the JSON file backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	default:
		p, err := file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
		if err != nil {
			return nil, err
		}

		return p, nil
	}
}
