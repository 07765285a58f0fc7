// cmd/backend/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/friendgate/internal/backend"
	"github.com/cordwell/friendgate/internal/config"
	"github.com/cordwell/friendgate/internal/database"
	"github.com/cordwell/friendgate/internal/gateway"
	"github.com/cordwell/friendgate/internal/worker"
)

// logHost is the stand-in for the hosting game runtime. A real deployment
// replaces it with an adapter that renders inventories, sends chat lines
// and hands connections off.
type logHost struct {
	logger *logrus.Logger
}

func (h *logHost) OpenGUI(viewer uuid.UUID, page backend.Page) {
	h.logger.Infof("render %q for %s: %d rows", page.Title, viewer, page.Rows)
}

func (h *logHost) Message(player uuid.UUID, text string) {
	h.logger.Infof("message %s: %s", player, text)
}

func (h *logHost) Transfer(player uuid.UUID, server string) {
	h.logger.Infof("transfer %s to %s", player, server)
}

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateBackend(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	friends := database.NewFriendStore(db)
	if err := friends.EnsureSchema(ctx); err != nil {
		logger.Fatalf("failed to ensure schema: %v", err)
	}
	players := database.NewPlayerStore(db)

	pool := worker.New(cfg.Workers, cfg.QueueSize, logger)
	defer pool.Stop()

	token, err := gateway.CreateBackendToken([]byte(cfg.ChannelSecret), cfg.ServerName)
	if err != nil {
		logger.Fatalf("failed to create handshake token: %v", err)
	}

	sessions := backend.NewSessionStore()
	host := &logHost{logger: logger}

	// Keep the channel alive across gateway restarts.
	for ctx.Err() == nil {
		client, err := backend.Dial(ctx, cfg.GatewayURL, token, logger)
		if err != nil {
			logger.Warnf("could not reach gateway: %v", err)
		} else {
			logger.Infof("backend %s connected to gateway", cfg.ServerName)
			listener := backend.NewListener(logger, friends, players, sessions, pool, client, host, cfg.PageLoadTimeout)
			if err := client.Run(listener.Handle); err != nil {
				logger.Warnf("gateway connection lost: %v", err)
			}
			client.Close()
		}

		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
	}
	logger.Info("terminating")
}
