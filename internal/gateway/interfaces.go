// internal/gateway/interfaces.go
package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/cordwell/friendgate/internal/models"
)

// FriendStore is the slice of the relationship store the gateway needs.
// *database.FriendStore satisfies it; tests substitute an in-memory map.
type FriendStore interface {
	AddEdge(ctx context.Context, player, friend uuid.UUID) error
	RemoveEdge(ctx context.Context, player, friend uuid.UUID) error
	HasEdge(ctx context.Context, player, friend uuid.UUID) (bool, error)
	ListFriends(ctx context.Context, player uuid.UUID) ([]uuid.UUID, error)
}

// PlayerDirectory resolves between player UUIDs and display names.
// *database.PlayerStore satisfies it.
type PlayerDirectory interface {
	UsernameByID(ctx context.Context, id uuid.UUID) (string, error)
	ByUsername(ctx context.Context, username string) (models.Player, error)
}

// Presence answers which backend instance hosts a live player.
// *presence.Registry satisfies it.
type Presence interface {
	Lookup(ctx context.Context, player uuid.UUID) (server string, ok bool, err error)
	OnlineUsernames(ctx context.Context) ([]string, error)
}

// Router delivers one encoded channel datagram to a named backend
// instance's connection. *Server satisfies it.
type Router interface {
	SendToBackend(server string, payload []byte) error
}
