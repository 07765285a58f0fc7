// cmd/gateway/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/friendgate/internal/config"
	"github.com/cordwell/friendgate/internal/cooldown"
	"github.com/cordwell/friendgate/internal/database"
	"github.com/cordwell/friendgate/internal/gateway"
	"github.com/cordwell/friendgate/internal/presence"
	"github.com/cordwell/friendgate/internal/worker"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()

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

	registry, err := presence.Connect(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}

	pool := worker.New(cfg.Workers, cfg.QueueSize, logger)
	defer pool.Stop()

	tracker := cooldown.New(cfg.NotifyCooldown)
	defer tracker.Stop()

	resolver := gateway.NewResolver(friends, registry)
	server := gateway.NewServer(logger, []byte(cfg.ChannelSecret), resolver, registry, pool)
	commands := gateway.NewCommands(logger, friends, players, registry, server, tracker)

	mux := http.NewServeMux()
	mux.Handle("/channel", server)
	mux.HandleFunc("/command/friend", commandHandler(logger, func(ctx context.Context, sender uuid.UUID, senderName string, args []string) string {
		return commands.Friend(ctx, sender, senderName, args)
	}))
	mux.HandleFunc("/command/unfriend", commandHandler(logger, func(ctx context.Context, sender uuid.UUID, _ string, args []string) string {
		return commands.Unfriend(ctx, sender, args)
	}))
	mux.HandleFunc("/command/suggest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(commands.Suggest(r.Context()))
	})
	// Operator inspection: the raw outgoing edges of one player.
	mux.HandleFunc("/friends", func(w http.ResponseWriter, r *http.Request) {
		player, err := uuid.Parse(r.URL.Query().Get("player"))
		if err != nil {
			http.Error(w, "invalid player", http.StatusBadRequest)
			return
		}
		edges, err := friends.ListEdges(r.Context(), player)
		if err != nil {
			logger.Warnf("failed to list edges for %s: %v", player, err)
			http.Error(w, "storage unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(edges)
	})

	httpServer := &http.Server{
		Addr:         cfg.GatewayAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("gateway listening on %s", cfg.GatewayAddr)
		errc <- httpServer.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}

// commandHandler bridges the host's command layer to a command method.
// The routing layer POSTs the invoking player and the raw arguments; the
// body of the response is the reply line for that player.
func commandHandler(logger *logrus.Logger, run func(ctx context.Context, sender uuid.UUID, senderName string, args []string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Sender     string   `json:"sender"`
			SenderName string   `json:"sender_name"`
			Args       []string `json:"args"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		sender, err := uuid.Parse(req.Sender)
		if err != nil {
			http.Error(w, "invalid sender", http.StatusBadRequest)
			return
		}

		reply := run(r.Context(), sender, req.SenderName, req.Args)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"reply": reply})
	}
}
