package storage

import (
	"context"
	"errors"

	"notehub/internal/models"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrNoteNotFound = errors.New("note not found")
)

// Store is the persistence surface used by the handlers. Note lookups are
// owner-scoped: a note that exists but belongs to someone else is
// indistinguishable from one that does not exist.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateNote(ctx context.Context, ownerID int64, title, content string) (*models.Note, error)
	GetNote(ctx context.Context, id, ownerID int64) (*models.Note, error)
	ListNotes(ctx context.Context, ownerID int64, search string, skip, limit int) ([]models.Note, error)
	UpdateNote(ctx context.Context, id, ownerID int64, title, content string) (*models.Note, error)
	DeleteNote(ctx context.Context, id, ownerID int64) error
}
