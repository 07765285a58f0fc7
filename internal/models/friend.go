// internal/models/friend.go
package models

import "github.com/google/uuid"

// FriendEdge is one directed "marked as friend" row. The relation is
// asymmetric: (A,B) and (B,A) are separate rows; presence is only ever
// disclosed when both exist.
type FriendEdge struct {
	PlayerID uuid.UUID `json:"player_id"`
	FriendID uuid.UUID `json:"friend_id"`
}

// Player mirrors the externally-owned player identity table. This service
// only reads it: uuid -> username and username -> uuid.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}
