// internal/backend/listener.go
package backend

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/friendgate/internal/database"
	"github.com/cordwell/friendgate/internal/protocol"
	"github.com/cordwell/friendgate/internal/worker"
)

// FriendLister is the slice of the relationship store the backend needs:
// the one-time snapshot a GUI session is built from.
type FriendLister interface {
	ListFriends(ctx context.Context, player uuid.UUID) ([]uuid.UUID, error)
}

// NameResolver resolves display names for GUI entries.
// *database.PlayerStore satisfies it.
type NameResolver interface {
	UsernameByID(ctx context.Context, id uuid.UUID) (string, error)
}

const (
	msgNoFriends   = "You don't have any friend, do /friend <player> to add someone to your friends list."
	msgListFailure = "Couldn't load your friends list, please try again later."
)

// Listener dispatches channel datagrams arriving from the gateway and
// owns the session registry for this backend instance.
type Listener struct {
	logger   *logrus.Logger
	friends  FriendLister
	players  NameResolver
	sessions *SessionStore
	pool     *worker.Pool
	sender   Sender
	host     Host
	timeout  time.Duration

	// seq numbers every GetServersNames issued by this instance.
	seq atomic.Uint64
}

// NewListener wires the backend-side dispatcher.
func NewListener(logger *logrus.Logger, friends FriendLister, players NameResolver, sessions *SessionStore, pool *worker.Pool, sender Sender, host Host, timeout time.Duration) *Listener {
	return &Listener{
		logger:   logger,
		friends:  friends,
		players:  players,
		sessions: sessions,
		pool:     pool,
		sender:   sender,
		host:     host,
		timeout:  timeout,
	}
}

// Handle processes one datagram from the gateway. Malformed or unknown
// messages are logged and dropped.
func (l *Listener) Handle(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		l.logger.Warnf("dropping datagram from gateway: %v", err)
		return
	}

	switch m := msg.(type) {
	case protocol.MakeGUI:
		l.handleMakeGUI(m)
	case protocol.UpdateServersNames:
		l.handleUpdateServersNames(m)
	case protocol.Transfer:
		l.host.Transfer(m.Player, m.Server)
	case protocol.Notify:
		l.host.Message(m.Player, m.Text)
	default:
		l.logger.Warnf("gateway sent %T, a backend-to-gateway tag; dropping", m)
	}
}

// handleMakeGUI snapshots the viewer's friend list and opens a session.
// The snapshot happens exactly once per session, so re-querying mid-
// session can never reorder already-shown entries.
func (l *Listener) handleMakeGUI(m protocol.MakeGUI) {
	l.pool.Submit(func() {
		ctx := context.Background()

		ids, err := l.friends.ListFriends(ctx, m.Viewer)
		if err != nil {
			l.logger.Warnf("failed to list friends for %s: %v", m.Viewer, err)
			l.host.Message(m.Viewer, msgListFailure)
			return
		}
		if len(ids) == 0 {
			l.host.Message(m.Viewer, msgNoFriends)
			return
		}

		entries := make([]Entry, len(ids))
		for i, id := range ids {
			name, err := l.players.UsernameByID(ctx, id)
			if errors.Is(err, database.ErrNotFound) {
				// Identity table can lag behind the friend relation.
				name = id.String()[:8]
			} else if err != nil {
				l.logger.Warnf("failed to resolve name for %s: %v", id, err)
				l.host.Message(m.Viewer, msgListFailure)
				return
			}
			entries[i] = Entry{ID: id, Name: name}
		}

		session, err := NewSession(m.Viewer, entries, l.sender, l.host, &l.seq, l.timeout, l.logger, l.sessions.Delete)
		if err != nil {
			l.logger.Warnf("failed to open session for %s: %v", m.Viewer, err)
			return
		}
		l.sessions.Add(m.Viewer, session)
		session.Open()
	})
}

func (l *Listener) handleUpdateServersNames(m protocol.UpdateServersNames) {
	session, ok := l.sessions.Get(m.Viewer)
	if !ok {
		// Viewer closed the GUI before the answer arrived; nothing to do.
		return
	}
	session.ApplyLabels(m.Seq, m.Labels)
}

// CloseSession is called by the host when the viewer closes the GUI or
// disconnects.
func (l *Listener) CloseSession(viewer uuid.UUID) {
	if session, ok := l.sessions.Get(viewer); ok {
		session.Close()
	}
}

// Click is called by the host when the viewer interacts with a GUI slot.
func (l *Listener) Click(viewer uuid.UUID, slot int) {
	if session, ok := l.sessions.Get(viewer); ok {
		session.HandleClick(slot)
	}
}
