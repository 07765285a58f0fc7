// internal/gateway/resolver.go
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cordwell/friendgate/internal/protocol"
)

// Join resolution failures the caller turns into player-facing messages.
var (
	ErrTargetOffline = errors.New("target is offline")
	ErrNotMutual     = errors.New("players are not mutual friends")
)

// Resolver computes visibility labels and join permissions. It runs on the
// gateway because only the gateway sees live presence. Mutuality is
// recomputed on every call — either side can unfriend at any time, so it
// is never cached across requests.
type Resolver struct {
	friends  FriendStore
	presence Presence
}

// NewResolver wires a resolver over the relationship store and the live
// presence registry.
func NewResolver(friends FriendStore, presence Presence) *Resolver {
	return &Resolver{friends: friends, presence: presence}
}

// Labels resolves a page of candidates for viewer. The returned slice is
// positionally aligned with candidates; the caller has no other
// correlation key, so order is preserved exactly.
func (r *Resolver) Labels(ctx context.Context, viewer uuid.UUID, candidates []uuid.UUID) ([]string, error) {
	labels := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		label, err := r.label(ctx, viewer, candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve candidate %s: %w", candidate, err)
		}
		labels = append(labels, label)
	}
	return labels, nil
}

func (r *Resolver) label(ctx context.Context, viewer, candidate uuid.UUID) (string, error) {
	mutual, err := r.mutual(ctx, viewer, candidate)
	if err != nil {
		return "", err
	}
	if !mutual {
		return protocol.LabelHidden, nil
	}

	server, live, err := r.presence.Lookup(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !live {
		return protocol.LabelOffline, nil
	}
	if server == "" {
		// Race during transfer: live but the hosting instance is unknown.
		return protocol.LabelUnknownServer, nil
	}
	return server, nil
}

func (r *Resolver) mutual(ctx context.Context, a, b uuid.UUID) (bool, error) {
	forward, err := r.friends.HasEdge(ctx, a, b)
	if err != nil {
		return false, err
	}
	if !forward {
		return false, nil
	}
	return r.friends.HasEdge(ctx, b, a)
}

// ResolveJoin decides whether requester may be moved to target's backend
// instance and returns that instance's name. The mutuality check applies
// here too, not just in the GUI: a replayed Join for a non-mutual target
// is refused.
func (r *Resolver) ResolveJoin(ctx context.Context, requester, target uuid.UUID) (string, error) {
	mutual, err := r.mutual(ctx, requester, target)
	if err != nil {
		return "", fmt.Errorf("failed to check mutuality for join: %w", err)
	}
	if !mutual {
		return "", ErrNotMutual
	}

	server, live, err := r.presence.Lookup(ctx, target)
	if err != nil {
		return "", fmt.Errorf("failed to look up join target: %w", err)
	}
	if !live || server == "" {
		return "", ErrTargetOffline
	}
	return server, nil
}
