// Package database provides storage in PostgreSQL or SQLite through bun.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/holocrononline/holocron/model"
	"github.com/holocrononline/holocron/store"
	"github.com/holocrononline/holocron/tenant"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// DB is a store backend on top of a SQL database.
type DB struct {
	bun *bun.DB
}

// Connect connects to the database and pings it to ensure the connection is
// working. Connection strings starting with postgres:// or postgresql:// use
// PostgreSQL; anything else is treated as a SQLite file name, optionally
// prefixed with sqlite://.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	var db *bun.DB
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqlDB, pgdialect.New())
	default:
		sqlDB, err := sql.Open("sqlite3", strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// A single connection keeps in-memory databases shared and serializes
		// writers the way SQLite expects.
		sqlDB.SetMaxOpenConns(1)
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{
		bun: db,
	}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.bun.Close()
}

// Migrate creates the likes and comments tables and their indexes if they do
// not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for _, m := range []any{(*like)(nil), (*comment)(nil)} {
		if _, err := db.bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		name   string
		column string
	}{
		{"comments_tenant_id_idx", "tenant_id"},
		{"comments_name_idx", "name"},
	}
	for _, idx := range indexes {
		_, err := db.bun.NewCreateIndex().
			Model((*comment)(nil)).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// CountReactions returns the number of likes for name.
func (db *DB) CountReactions(ctx context.Context, name string) (int, error) {
	n, err := db.bun.NewSelect().
		Model((*like)(nil)).
		Where("name = ?", name).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}

// FindReaction returns the like of name owned by owner.
func (db *DB) FindReaction(ctx context.Context, name string, owner tenant.ID) (*model.Reaction, error) {
	var l like
	err := db.bun.NewSelect().
		Model(&l).
		Where("name = ?", name).
		Where("tenant_id = ?", string(owner)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select like: %w", err)
	}
	r := l.ModelReaction()
	return &r, nil
}

// ListReviews returns the comments for name, newest viewing first.
func (db *DB) ListReviews(ctx context.Context, name string) ([]model.Review, error) {
	var comments []comment
	err := db.bun.NewSelect().
		Model(&comments).
		Where("name = ?", name).
		Order("date_watched DESC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	out := make([]model.Review, len(comments))
	for i, c := range comments {
		out[i] = c.ModelReview()
	}
	return out, nil
}

// CountReviews returns the number of comments for name.
func (db *DB) CountReviews(ctx context.Context, name string) (int, error) {
	n, err := db.bun.NewSelect().
		Model((*comment)(nil)).
		Where("name = ?", name).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

// HasReview reports whether owner commented on name.
func (db *DB) HasReview(ctx context.Context, name string, owner tenant.ID) (bool, error) {
	ok, err := db.bun.NewSelect().
		Model((*comment)(nil)).
		Where("name = ?", name).
		Where("tenant_id = ?", string(owner)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("exists comment: %w", err)
	}
	return ok, nil
}

// Apply persists the change set in a single transaction. Removals run before
// insertions. A unique constraint violation rolls the transaction back and is
// reported as store.ErrConflict.
func (db *DB) Apply(ctx context.Context, changes *store.Changes) error {
	return db.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, rec := range changes.Removed() {
			if err := remove(ctx, tx, rec); err != nil {
				return err
			}
		}
		for _, rec := range changes.Added() {
			if err := insert(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func insert(ctx context.Context, tx bun.Tx, rec model.Record) error {
	var m any
	switch v := rec.(type) {
	case *model.Reaction:
		m = newLike(v)
	case *model.Review:
		m = newComment(v)
	default:
		return fmt.Errorf("unsupported record %T", rec)
	}

	if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", translate(err))
	}
	return nil
}

func remove(ctx context.Context, tx bun.Tx, rec model.Record) error {
	var (
		m  any
		id string
	)
	switch v := rec.(type) {
	case *model.Reaction:
		m, id = (*like)(nil), v.ID
	case *model.Review:
		m, id = (*comment)(nil), v.ID
	default:
		return fmt.Errorf("unsupported record %T", rec)
	}

	res, err := tx.NewDelete().Model(m).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// translate maps driver specific unique violations to store.ErrConflict.
func translate(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Field('n'))
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) &&
		(liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %s", store.ErrConflict, liteErr.Error())
	}
	return err
}
