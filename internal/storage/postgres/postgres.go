package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"notehub/internal/config"
	"notehub/internal/logger"
	"notehub/internal/models"
	"notehub/internal/storage"
)

const uniqueViolation = "23505"

type Storage struct {
	db *sqlx.DB
}

// Connect opens a pooled connection to Postgres and verifies it with a
// retried ping, so a database that is still starting up does not kill the
// process on the first attempt.
func Connect(ctx context.Context, log *slog.Logger, cfg config.Database) (*Storage, error) {
	pgCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pgCfg.ConnectTimeout = 5 * time.Second

	db := sqlx.NewDb(stdlib.OpenDB(*pgCfg), "pgx")
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	err = retry.Do(
		func() error { return db.PingContext(ctx) },
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(300*time.Millisecond),
		retry.OnRetry(func(attempt uint, err error) {
			log.Warn("database ping failed",
				slog.Uint64("attempt", uint64(attempt)),
				logger.Err(err),
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	const op = "storage.postgres.CreateUser"

	var u models.User
	err := s.db.GetContext(ctx, &u, `
		INSERT INTO users (username, password)
		VALUES ($1, $2)
		RETURNING id, username, password, role, created_at
	`, username, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, storage.ErrUserExists
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.postgres.GetUserByUsername"

	var u models.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, username, password, role, created_at
		FROM users
		WHERE username=$1
	`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.postgres.ListUsers"

	var users []models.User
	err := s.db.SelectContext(ctx, &users, `
		SELECT id, username, password, role, created_at
		FROM users
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (s *Storage) CreateNote(ctx context.Context, ownerID int64, title, content string) (*models.Note, error) {
	const op = "storage.postgres.CreateNote"

	var n models.Note
	err := s.db.GetContext(ctx, &n, `
		INSERT INTO notes (owner_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, owner_id, title, content, created_at
	`, ownerID, title, content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &n, nil
}

func (s *Storage) GetNote(ctx context.Context, id, ownerID int64) (*models.Note, error) {
	const op = "storage.postgres.GetNote"

	var n models.Note
	err := s.db.GetContext(ctx, &n, `
		SELECT id, owner_id, title, content, created_at
		FROM notes
		WHERE id=$1 AND owner_id=$2
	`, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &n, nil
}

func (s *Storage) ListNotes(ctx context.Context, ownerID int64, search string, skip, limit int) ([]models.Note, error) {
	const op = "storage.postgres.ListNotes"

	var notes []models.Note
	err := s.db.SelectContext(ctx, &notes, `
		SELECT id, owner_id, title, content, created_at
		FROM notes
		WHERE owner_id=$1
		  AND ($2 = '' OR title LIKE '%'||$2||'%' OR content LIKE '%'||$2||'%')
		ORDER BY id
		LIMIT $3 OFFSET $4
	`, ownerID, search, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return notes, nil
}

func (s *Storage) UpdateNote(ctx context.Context, id, ownerID int64, title, content string) (*models.Note, error) {
	const op = "storage.postgres.UpdateNote"

	var n models.Note
	err := s.db.GetContext(ctx, &n, `
		UPDATE notes
		SET title=$1, content=$2
		WHERE id=$3 AND owner_id=$4
		RETURNING id, owner_id, title, content, created_at
	`, title, content, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &n, nil
}

func (s *Storage) DeleteNote(ctx context.Context, id, ownerID int64) error {
	const op = "storage.postgres.DeleteNote"

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM notes WHERE id=$1 AND owner_id=$2
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return storage.ErrNoteNotFound
	}

	return nil
}
