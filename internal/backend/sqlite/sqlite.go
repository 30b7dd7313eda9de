// Package sqlite is the SQLite repository adapter. Predicate trees are lowered to
// parameterized SQL over the stac_collection and stac_item tables.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

//go:embed schema.sql
var schema string

// Config holds database configuration.
type Config struct {
	Path         string
	MaxOpenConns int
}

// Repository implements backend.Repository over SQLite.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at cfg.Path and migrates its schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}
	if cfg.MaxOpenConns < 1 {
		cfg.MaxOpenConns = 1
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=1&_cslike=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Debug("sqlite repository opened",
		slog.String("path", cfg.Path),
		slog.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return &Repository{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// classify maps driver errors onto the repository error kinds.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %w", op, backend.ErrRepositoryUnavailable, err)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrNotADB:
			return fmt.Errorf("%s: %w: %w", op, backend.ErrRepositoryUnavailable, err)
		}
	}
	return backend.WrapError(op, err)
}

// PutCollections inserts collections in one transaction.
func (r *Repository) PutCollections(ctx context.Context, collections []*catalog.Collection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stac_collection (id, title, description, license, min_x, min_y, max_x, max_y, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return classify("prepare collection insert", err)
	}
	defer stmt.Close()

	for _, c := range collections {
		var end any
		if c.EndDate != nil {
			end = catalog.FormatTime(*c.EndDate)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Title, c.Description, c.License,
			c.MinX, c.MinY, c.MaxX, c.MaxY,
			catalog.FormatTime(c.StartDate), end,
		); err != nil {
			return classify(fmt.Sprintf("insert collection %s", c.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// PutItems inserts items in one transaction.
func (r *Repository) PutItems(ctx context.Context, items []*catalog.Item) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stac_item (
			id, collection, date, center_time,
			tl_longitude, tl_latitude, bl_longitude, bl_latitude,
			br_longitude, br_latitude, tr_longitude, tr_latitude,
			"path", "row", satellite, sensor, cloud_cover, sync_loss, assets, thumbnail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return classify("prepare item insert", err)
	}
	defer stmt.Close()

	for _, item := range items {
		packed, err := catalog.PackAssets(item.Assets)
		if err != nil {
			return err
		}
		var center, syncLoss any
		if item.CenterTime != nil {
			center = catalog.FormatTime(*item.CenterTime)
		}
		if item.SyncLoss != nil {
			syncLoss = *item.SyncLoss
		}
		fp := item.Footprint
		if _, err := stmt.ExecContext(ctx,
			item.ID, item.Collection, catalog.FormatTime(item.Date), center,
			fp.TopLeft.Lon(), fp.TopLeft.Lat(), fp.BottomLeft.Lon(), fp.BottomLeft.Lat(),
			fp.BottomRight.Lon(), fp.BottomRight.Lat(), fp.TopRight.Lon(), fp.TopRight.Lat(),
			item.Path, item.Row, item.Satellite, item.Sensor, item.CloudCover, syncLoss,
			packed, item.Thumbnail,
		); err != nil {
			return classify(fmt.Sprintf("insert item %s", item.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	r.logger.Debug("items stored", slog.Int("count", len(items)))
	return nil
}
