// internal/database/friend.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cordwell/friendgate/internal/models"
)

// FriendStore persists the directed friend relation. A failure from any
// method means "unknown state"; callers must never interpret it as a
// negative answer.
type FriendStore struct {
	db *pgxpool.Pool
}

// NewFriendStore returns a store backed by the given pool.
func NewFriendStore(db *pgxpool.Pool) *FriendStore {
	return &FriendStore{db: db}
}

// EnsureSchema creates the friend relation if it does not exist yet.
// Run once at startup, not per request.
func (s *FriendStore) EnsureSchema(ctx context.Context) error {
	q := `
		CREATE TABLE IF NOT EXISTS friend (
			player_uuid uuid NOT NULL,
			friend_uuid uuid NOT NULL,
			added_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (player_uuid, friend_uuid)
		)
	`
	if _, err := s.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("failed to ensure friend table: %w", err)
	}
	return nil
}

// AddEdge marks friend as a friend of player. Inserting an edge that
// already exists is a no-op; the composite key keeps the row unique.
func (s *FriendStore) AddEdge(ctx context.Context, player, friend uuid.UUID) error {
	q := `
		INSERT INTO friend (player_uuid, friend_uuid)
		VALUES ($1, $2)
		ON CONFLICT (player_uuid, friend_uuid) DO NOTHING
	`
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, player, friend)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to mark player as friend: %w", err)
	}
	return nil
}

// RemoveEdge deletes the (player, friend) edge. Deleting a missing edge is
// a no-op, not an error.
func (s *FriendStore) RemoveEdge(ctx context.Context, player, friend uuid.UUID) error {
	q := `
		DELETE FROM friend
		WHERE player_uuid=$1 AND friend_uuid=$2
	`
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, player, friend)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to remove friend edge: %w", err)
	}
	return nil
}

// HasEdge reports whether player has marked friend as a friend. This is
// one direction only; mutuality is two HasEdge calls.
func (s *FriendStore) HasEdge(ctx context.Context, player, friend uuid.UUID) (bool, error) {
	q := `
		SELECT 1
		FROM friend
		WHERE player_uuid=$1 AND friend_uuid=$2
	`
	var one int
	err := s.db.QueryRow(ctx, q, player, friend).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check friend edge: %w", err)
	}
	return true, nil
}

// ListFriends returns every friend player has marked, oldest first. The
// order is stable across calls; pagination slices this sequence, and the
// GUI session snapshots it once when it opens.
func (s *FriendStore) ListFriends(ctx context.Context, player uuid.UUID) ([]uuid.UUID, error) {
	q := `
		SELECT friend_uuid
		FROM friend
		WHERE player_uuid=$1
		ORDER BY added_at, friend_uuid
	`
	rows, err := s.db.Query(ctx, q, player)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend row: %w", err)
		}
		friends = append(friends, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read friend rows: %w", err)
	}
	return friends, nil
}

// ListEdges returns player's outgoing edges as full rows, oldest first.
func (s *FriendStore) ListEdges(ctx context.Context, player uuid.UUID) ([]models.FriendEdge, error) {
	q := `
		SELECT player_uuid, friend_uuid
		FROM friend
		WHERE player_uuid=$1
		ORDER BY added_at, friend_uuid
	`
	rows, err := s.db.Query(ctx, q, player)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend edges: %w", err)
	}
	defer rows.Close()

	var edges []models.FriendEdge
	for rows.Next() {
		var edge models.FriendEdge
		if err := rows.Scan(&edge.PlayerID, &edge.FriendID); err != nil {
			return nil, fmt.Errorf("failed to scan friend edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read friend edges: %w", err)
	}
	return edges, nil
}
