package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

const itemColumns = `id, collection, date, center_time,
	tl_longitude, tl_latitude, bl_longitude, bl_latitude,
	br_longitude, br_latitude, tr_longitude, tr_latitude,
	"path", "row", satellite, sensor, cloud_cover, sync_loss, assets, thumbnail`

const collectionColumns = `id, title, description, license, min_x, min_y, max_x, max_y, start_date, end_date`

// Count returns the number of items f selects.
func (r *Repository) Count(ctx context.Context, f filter.BooleanExpression) (int, error) {
	where, args, err := Lower(f)
	if err != nil {
		return 0, backend.WrapError("lower filter", err)
	}

	query := "SELECT COUNT(*) FROM stac_item WHERE " + where
	r.logger.Debug("count query", slog.String("sql", query), slog.Int("args", len(args)))

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify("count", err)
	}
	return n, nil
}

// CountByGroup counts the items f selects per distinct value of field.
func (r *Repository) CountByGroup(ctx context.Context, f filter.BooleanExpression, field string) (map[string]int, error) {
	col, err := quote(field)
	if err != nil {
		return nil, backend.WrapError("count by group", err)
	}
	where, args, err := Lower(f)
	if err != nil {
		return nil, backend.WrapError("lower filter", err)
	}

	query := "SELECT " + col + ", COUNT(*) FROM stac_item WHERE " + where + " GROUP BY " + col
	r.logger.Debug("grouped count query", slog.String("sql", query), slog.Int("args", len(args)))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("count by group", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key sql.NullString
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, classify("scan group", err)
		}
		if key.Valid {
			counts[key.String] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify("count by group", err)
	}
	return counts, nil
}

// Fetch returns the window of items f selects in the given order. A window limit
// of zero or less returns every item from the offset on.
func (r *Repository) Fetch(ctx context.Context, f filter.BooleanExpression, w backend.Window, order []backend.OrderBy) ([]*catalog.Item, error) {
	where, args, err := Lower(f)
	if err != nil {
		return nil, backend.WrapError("lower filter", err)
	}
	orderBy, err := orderClause(order)
	if err != nil {
		return nil, backend.WrapError("order", err)
	}

	limit := w.Limit
	if limit <= 0 {
		limit = -1
	}
	query := "SELECT " + itemColumns + " FROM stac_item WHERE " + where + orderBy + " LIMIT ? OFFSET ?"
	args = append(args, limit, max(w.Offset, 0))
	r.logger.Debug("fetch query", slog.String("sql", query), slog.Int("args", len(args)))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("fetch", err)
	}
	defer rows.Close()

	items := []*catalog.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, backend.WrapError("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("fetch", err)
	}
	return items, nil
}

// Collections returns every collection sorted by ID.
func (r *Repository) Collections(ctx context.Context) ([]*catalog.Collection, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+collectionColumns+" FROM stac_collection ORDER BY id")
	if err != nil {
		return nil, classify("list collections", err)
	}
	defer rows.Close()

	collections := []*catalog.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, backend.WrapError("scan collection", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list collections", err)
	}
	return collections, nil
}

// Collection returns one collection.
func (r *Repository) Collection(ctx context.Context, id string) (*catalog.Collection, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+collectionColumns+" FROM stac_collection WHERE id = ?", id)
	c, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", backend.ErrCollectionNotFound, id)
	}
	if err != nil {
		return nil, classify("get collection", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*catalog.Item, error) {
	var (
		item         catalog.Item
		date, packed string
		center       sql.NullString
		syncLoss     sql.NullFloat64
		fp           = &item.Footprint
	)
	if err := s.Scan(
		&item.ID, &item.Collection, &date, &center,
		&fp.TopLeft[0], &fp.TopLeft[1], &fp.BottomLeft[0], &fp.BottomLeft[1],
		&fp.BottomRight[0], &fp.BottomRight[1], &fp.TopRight[0], &fp.TopRight[1],
		&item.Path, &item.Row, &item.Satellite, &item.Sensor, &item.CloudCover, &syncLoss,
		&packed, &item.Thumbnail,
	); err != nil {
		return nil, err
	}

	t, err := catalog.ParseTime(date)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}
	item.Date = t

	if center.Valid {
		ct, err := catalog.ParseTime(center.String)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.ID, err)
		}
		item.CenterTime = &ct
	}
	if syncLoss.Valid {
		v := syncLoss.Float64
		item.SyncLoss = &v
	}

	item.Assets, err = catalog.UnpackAssets(packed)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}
	return &item, nil
}

func scanCollection(s scanner) (*catalog.Collection, error) {
	var (
		c     catalog.Collection
		start string
		end   sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Title, &c.Description, &c.License,
		&c.MinX, &c.MinY, &c.MaxX, &c.MaxY, &start, &end); err != nil {
		return nil, err
	}

	t, err := catalog.ParseTime(start)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", c.ID, err)
	}
	c.StartDate = t

	if end.Valid {
		et, err := catalog.ParseTime(end.String)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", c.ID, err)
		}
		c.EndDate = &et
	}
	return &c, nil
}
