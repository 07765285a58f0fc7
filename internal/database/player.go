// internal/database/player.go
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cordwell/friendgate/internal/models"
)

// PlayerStore reads the externally-owned player identity table. Lookups in
// either direction can miss; that surfaces as ErrNotFound, not a failure.
type PlayerStore struct {
	db *pgxpool.Pool
}

// NewPlayerStore returns a store backed by the given pool.
func NewPlayerStore(db *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{db: db}
}

// UsernameByID resolves a player's display name from their UUID.
func (s *PlayerStore) UsernameByID(ctx context.Context, id uuid.UUID) (string, error) {
	q := `
		SELECT username
		FROM player
		WHERE uuid=$1
	`
	var username string
	err := s.db.QueryRow(ctx, q, id).Scan(&username)
	if err == pgx.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve username from uuid: %w", err)
	}
	return username, nil
}

// ByUsername resolves a player from their display name. The match is
// case-insensitive; storage is case-preserving, and the returned row
// carries the canonical casing.
func (s *PlayerStore) ByUsername(ctx context.Context, username string) (models.Player, error) {
	q := `
		SELECT uuid, username
		FROM player
		WHERE LOWER(username)=$1
	`
	var player models.Player
	err := s.db.QueryRow(ctx, q, strings.ToLower(username)).Scan(&player.ID, &player.Username)
	if err == pgx.ErrNoRows {
		return models.Player{}, ErrNotFound
	}
	if err != nil {
		return models.Player{}, fmt.Errorf("failed to resolve player from username: %w", err)
	}
	return player, nil
}
