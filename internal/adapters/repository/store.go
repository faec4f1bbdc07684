package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/infrastructure/database"
	"github.com/taskmaster/todolists/internal/ports"
)

// Store implements ports.UnitOfWork on top of a database connection
type Store struct {
	db *database.DB
}

// NewStore creates a new store
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Do runs fn with repositories bound to one transaction
func (s *Store) Do(ctx context.Context, fn func(repos ports.Repositories) error) error {
	err := s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return fn(ports.Repositories{
			Users: NewUserRepository(tx),
			Lists: NewListRepository(tx),
			Tasks: NewTaskRepository(tx),
		})
	})
	return entities.StoreError("transaction", err)
}
