// internal/gateway/resolver_test.go
package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordwell/friendgate/internal/database"
	"github.com/cordwell/friendgate/internal/protocol"
)

// fakeFriendStore keeps edges in a map; failErr makes every call fail to
// exercise the "storage failure is unknown state" paths.
type fakeFriendStore struct {
	mu      sync.Mutex
	edges   map[[2]uuid.UUID]bool
	failErr error
}

func newFakeFriendStore() *fakeFriendStore {
	return &fakeFriendStore{edges: make(map[[2]uuid.UUID]bool)}
}

func (f *fakeFriendStore) AddEdge(_ context.Context, player, friend uuid.UUID) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges[[2]uuid.UUID{player, friend}] = true
	return nil
}

func (f *fakeFriendStore) RemoveEdge(_ context.Context, player, friend uuid.UUID) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.edges, [2]uuid.UUID{player, friend})
	return nil
}

func (f *fakeFriendStore) HasEdge(_ context.Context, player, friend uuid.UUID) (bool, error) {
	if f.failErr != nil {
		return false, f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edges[[2]uuid.UUID{player, friend}], nil
}

func (f *fakeFriendStore) ListFriends(_ context.Context, player uuid.UUID) ([]uuid.UUID, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var friends []uuid.UUID
	for key := range f.edges {
		if key[0] == player {
			friends = append(friends, key[1])
		}
	}
	return friends, nil
}

// fakePresence maps players to server names. Empty string models the
// transfer race (live but instance unknown).
type fakePresence struct {
	servers map[uuid.UUID]string
	names   []string
}

func newFakePresence() *fakePresence {
	return &fakePresence{servers: make(map[uuid.UUID]string)}
}

func (f *fakePresence) Lookup(_ context.Context, player uuid.UUID) (string, bool, error) {
	server, ok := f.servers[player]
	return server, ok, nil
}

func (f *fakePresence) OnlineUsernames(_ context.Context) ([]string, error) {
	return f.names, nil
}

func TestLabelsVisibilityMatrix(t *testing.T) {
	ctx := context.Background()
	friends := newFakeFriendStore()
	pres := newFakePresence()
	r := NewResolver(friends, pres)

	viewer := uuid.New()
	oneWay := uuid.New()    // viewer marked them, not reciprocated
	offline := uuid.New()   // mutual, not online
	live := uuid.New()      // mutual, on lobby-1
	migrating := uuid.New() // mutual, live but instance unknown

	require.NoError(t, friends.AddEdge(ctx, viewer, oneWay))
	for _, mutual := range []uuid.UUID{offline, live, migrating} {
		require.NoError(t, friends.AddEdge(ctx, viewer, mutual))
		require.NoError(t, friends.AddEdge(ctx, mutual, viewer))
	}
	pres.servers[live] = "lobby-1"
	pres.servers[migrating] = ""

	labels, err := r.Labels(ctx, viewer, []uuid.UUID{oneWay, offline, live, migrating})
	require.NoError(t, err)
	assert.Equal(t, []string{
		protocol.LabelHidden,
		protocol.LabelOffline,
		"lobby-1",
		protocol.LabelUnknownServer,
	}, labels)
}

func TestLabelsPreserveInputOrder(t *testing.T) {
	ctx := context.Background()
	friends := newFakeFriendStore()
	pres := newFakePresence()
	r := NewResolver(friends, pres)

	viewer := uuid.New()
	candidates := make([]uuid.UUID, protocol.MaxPageSize)
	want := make([]string, protocol.MaxPageSize)
	for i := range candidates {
		candidates[i] = uuid.New()
		if i%2 == 0 {
			require.NoError(t, friends.AddEdge(ctx, viewer, candidates[i]))
			require.NoError(t, friends.AddEdge(ctx, candidates[i], viewer))
			want[i] = protocol.LabelOffline
		} else {
			want[i] = protocol.LabelHidden
		}
	}

	labels, err := r.Labels(ctx, viewer, candidates)
	require.NoError(t, err)
	assert.Equal(t, want, labels)
}

func TestLabelsEmptyBatch(t *testing.T) {
	r := NewResolver(newFakeFriendStore(), newFakePresence())
	labels, err := r.Labels(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestLabelsStorageFailureIsAnError(t *testing.T) {
	friends := newFakeFriendStore()
	friends.failErr = errors.New("connection refused")
	r := NewResolver(friends, newFakePresence())

	_, err := r.Labels(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
	assert.Error(t, err, "storage failure must not resolve to a label")
}

func TestResolveJoin(t *testing.T) {
	ctx := context.Background()
	friends := newFakeFriendStore()
	pres := newFakePresence()
	r := NewResolver(friends, pres)

	requester := uuid.New()
	target := uuid.New()

	// Not mutual: refused even though the GUI would never offer the click.
	_, err := r.ResolveJoin(ctx, requester, target)
	assert.ErrorIs(t, err, ErrNotMutual)

	require.NoError(t, friends.AddEdge(ctx, requester, target))
	require.NoError(t, friends.AddEdge(ctx, target, requester))

	_, err = r.ResolveJoin(ctx, requester, target)
	assert.ErrorIs(t, err, ErrTargetOffline)

	pres.servers[target] = "survival-3"
	server, err := r.ResolveJoin(ctx, requester, target)
	require.NoError(t, err)
	assert.Equal(t, "survival-3", server)
}

func TestMutualityEndToEnd(t *testing.T) {
	ctx := context.Background()
	friends := newFakeFriendStore()
	pres := newFakePresence()
	r := NewResolver(friends, pres)

	a := uuid.New()
	b := uuid.New()

	// A marks B; B has not reciprocated.
	require.NoError(t, friends.AddEdge(ctx, a, b))

	aList, err := friends.ListFriends(ctx, a)
	require.NoError(t, err)
	assert.Contains(t, aList, b)

	bList, err := friends.ListFriends(ctx, b)
	require.NoError(t, err)
	assert.NotContains(t, bList, a)

	// B viewing A sees Hidden.
	labels, err := r.Labels(ctx, b, []uuid.UUID{a})
	require.NoError(t, err)
	assert.Equal(t, []string{protocol.LabelHidden}, labels)

	// B reciprocates; both directions now resolve.
	require.NoError(t, friends.AddEdge(ctx, b, a))

	labels, err = r.Labels(ctx, b, []uuid.UUID{a})
	require.NoError(t, err)
	assert.Equal(t, []string{protocol.LabelOffline}, labels)

	pres.servers[a] = "lobby-2"
	labels, err = r.Labels(ctx, b, []uuid.UUID{a})
	require.NoError(t, err)
	assert.Equal(t, []string{"lobby-2"}, labels)
}

// Guard against the stores drifting from the interfaces the gateway needs.
var (
	_ FriendStore     = (*database.FriendStore)(nil)
	_ PlayerDirectory = (*database.PlayerStore)(nil)
)
