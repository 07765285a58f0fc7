// internal/gateway/server.go
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/friendgate/internal/protocol"
	"github.com/cordwell/friendgate/internal/worker"
)

// Server owns the gateway side of the friend channel: it accepts one
// websocket connection per backend instance, dispatches inbound datagrams,
// and routes outbound datagrams to the right instance.
type Server struct {
	logger   *logrus.Logger
	secret   []byte
	resolver *Resolver
	presence Presence
	pool     *worker.Pool

	mu       sync.Mutex
	backends map[string]*backendConn
}

// backendConn is one backend instance's live connection.
type backendConn struct {
	server  string
	outChan chan []byte
	cancel  context.CancelFunc
}

// send pushes a datagram non-blockingly; the channel is fire-and-forget,
// so a full queue drops the message rather than stalling the dispatcher.
func (bc *backendConn) send(logger *logrus.Logger, payload []byte) {
	select {
	case bc.outChan <- payload:
	default:
		logger.Warnf("outbound queue for backend %s full, dropping datagram", bc.server)
	}
}

// NewServer wires the gateway dispatcher.
func NewServer(logger *logrus.Logger, secret []byte, resolver *Resolver, presence Presence, pool *worker.Pool) *Server {
	return &Server{
		logger:   logger,
		secret:   secret,
		resolver: resolver,
		presence: presence,
		pool:     pool,
		backends: make(map[string]*backendConn),
	}
}

// ServeHTTP upgrades a backend instance's connection. The handshake must
// carry a bearer token with the backend role; anything else is refused
// before it can speak on the channel.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" || token == authHeader {
		s.logger.Warnf("channel connection from %s without bearer token", r.RemoteAddr)
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	serverName, err := VerifyBackendToken(s.secret, token)
	if err != nil {
		s.logger.Warnf("channel connection from %s rejected: %v", r.RemoteAddr, err)
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{"friend"},
	})
	if err != nil {
		s.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "friend" {
		c.Close(websocket.StatusPolicyViolation, "client must speak the friend subprotocol")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	conn := &backendConn{
		server:  serverName,
		outChan: make(chan []byte, 64),
		cancel:  cancel,
	}
	s.register(conn)
	s.logger.Infof("backend %s connected from %s", serverName, r.RemoteAddr)

	go s.writePump(ctx, c, conn)
	s.readPump(ctx, c, conn)

	s.unregister(conn)
	cancel()
	s.logger.Infof("backend %s disconnected", serverName)
}

func (s *Server) register(conn *backendConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, exists := s.backends[conn.server]; exists {
		s.logger.Warnf("backend %s reconnected, replacing previous connection", conn.server)
		old.cancel()
	}
	s.backends[conn.server] = conn
}

func (s *Server) unregister(conn *backendConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, exists := s.backends[conn.server]; exists && current == conn {
		delete(s.backends, conn.server)
	}
}

func (s *Server) writePump(ctx context.Context, c *websocket.Conn, conn *backendConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-conn.outChan:
			if err := c.Write(ctx, websocket.MessageBinary, payload); err != nil {
				s.logger.Warnf("write to backend %s failed: %v", conn.server, err)
				return
			}
		}
	}
}

func (s *Server) readPump(ctx context.Context, c *websocket.Conn, conn *backendConn) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus != websocket.StatusNormalClosure && closeStatus != websocket.StatusGoingAway {
				s.logger.Warnf("read error from backend %s: %v", conn.server, err)
			}
			return
		}
		if typ != websocket.MessageBinary {
			s.logger.Warnf("non-binary message from backend %s, ignoring", conn.server)
			continue
		}
		s.dispatch(ctx, conn, data)
	}
}

// dispatch decodes one datagram and hands it to the tag's handler.
// Unrecognized or malformed datagrams are logged and dropped; they never
// affect the connection.
func (s *Server) dispatch(ctx context.Context, conn *backendConn, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		s.logger.Warnf("dropping datagram from backend %s: %v", conn.server, err)
		return
	}

	switch m := msg.(type) {
	case protocol.MakeGUI:
		s.handleMakeGUI(ctx, m)
	case protocol.GetServersNames:
		s.handleGetServersNames(ctx, conn, m)
	case protocol.Join:
		s.handleJoin(ctx, m)
	default:
		s.logger.Warnf("backend %s sent %T, a gateway-to-backend tag; dropping", conn.server, m)
	}
}

// handleMakeGUI relays the GUI trigger to whichever backend instance
// currently hosts the viewer. The friend list itself is fetched by that
// instance; the tag only begins the session.
func (s *Server) handleMakeGUI(ctx context.Context, m protocol.MakeGUI) {
	s.pool.Submit(func() {
		if err := s.SendToPlayer(context.Background(), m.Viewer, m.Encode()); err != nil {
			s.logger.Warnf("could not relay MakeGUI for %s: %v", m.Viewer, err)
		}
	})
}

func (s *Server) handleGetServersNames(ctx context.Context, conn *backendConn, m protocol.GetServersNames) {
	s.pool.Submit(func() {
		labels, err := s.resolver.Labels(context.Background(), m.Viewer, m.Candidates)
		if err != nil {
			// The viewer's session stays loading; its timeout covers us.
			s.logger.Warnf("failed to resolve page for viewer %s: %v", m.Viewer, err)
			return
		}
		reply := protocol.UpdateServersNames{Seq: m.Seq, Viewer: m.Viewer, Labels: labels}
		conn.send(s.logger, reply.Encode())
	})
}

func (s *Server) handleJoin(ctx context.Context, m protocol.Join) {
	s.pool.Submit(func() {
		bg := context.Background()
		targetServer, err := s.resolver.ResolveJoin(bg, m.Requester, m.Target)
		switch {
		case err == ErrTargetOffline:
			s.notifyPlayer(bg, m.Requester, "Error: your friend is offline.")
			return
		case err == ErrNotMutual:
			s.notifyPlayer(bg, m.Requester, "Error: this player has not added you to their friends list.")
			return
		case err != nil:
			s.logger.Warnf("join %s -> %s failed: %v", m.Requester, m.Target, err)
			s.notifyPlayer(bg, m.Requester, "Error: could not join your friend right now.")
			return
		}

		transfer := protocol.Transfer{Player: m.Requester, Server: targetServer}
		if err := s.SendToPlayer(bg, m.Requester, transfer.Encode()); err != nil {
			s.logger.Warnf("could not issue transfer for %s: %v", m.Requester, err)
		}
	})
}

func (s *Server) notifyPlayer(ctx context.Context, player uuid.UUID, text string) {
	msg := protocol.Notify{Player: player, Text: text}
	if err := s.SendToPlayer(ctx, player, msg.Encode()); err != nil {
		s.logger.Warnf("could not notify player %s: %v", player, err)
	}
}

// SendToBackend delivers one datagram to a named backend instance.
func (s *Server) SendToBackend(server string, payload []byte) error {
	s.mu.Lock()
	conn, exists := s.backends[server]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("backend %s is not connected", server)
	}
	conn.send(s.logger, payload)
	return nil
}

// SendToPlayer routes a datagram to the backend instance currently
// hosting the player.
func (s *Server) SendToPlayer(ctx context.Context, player uuid.UUID, payload []byte) error {
	server, live, err := s.presence.Lookup(ctx, player)
	if err != nil {
		return fmt.Errorf("presence lookup for %s failed: %w", player, err)
	}
	if !live {
		return fmt.Errorf("player %s has no live presence", player)
	}
	return s.SendToBackend(server, payload)
}
