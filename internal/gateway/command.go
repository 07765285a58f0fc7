// internal/gateway/command.go
package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/friendgate/internal/cooldown"
	"github.com/cordwell/friendgate/internal/database"
	"github.com/cordwell/friendgate/internal/protocol"
)

// Player-facing reply lines. The host's command layer prints whatever
// these methods return to the invoking player.
const (
	replyTooManyArgs   = "Too many arguments"
	replySelfFriend    = "Feeling lonely? Join our discord server!"
	replyNoSuchPlayer  = "Couldn't find this player"
	replyAlreadyFriend = "You've already marked this player as a friend."
	replyFriendAdded   = "Added to your friends list!"
	replyNotAFriend    = "This player is not in your friends list."
	replyUnfriended    = "Removed from your friends list."
	replyStorageDown   = "Something went wrong, please try again later."
)

// Commands implements the effects behind /friend and /unfriend. Parsing
// and autocomplete plumbing belong to the host's command layer; it calls
// these methods with the already-split arguments.
type Commands struct {
	logger   *logrus.Logger
	friends  FriendStore
	players  PlayerDirectory
	presence Presence
	router   Router
	cooldown *cooldown.Tracker
}

// NewCommands wires the command handlers.
func NewCommands(logger *logrus.Logger, friends FriendStore, players PlayerDirectory, presence Presence, router Router, cd *cooldown.Tracker) *Commands {
	return &Commands{
		logger:   logger,
		friends:  friends,
		players:  players,
		presence: presence,
		router:   router,
		cooldown: cd,
	}
}

// Friend handles "/friend [name]". With no argument it opens the sender's
// friend GUI; with a name it marks that player as a friend. The returned
// string is the reply for the sender ("" for none).
func (c *Commands) Friend(ctx context.Context, sender uuid.UUID, senderName string, args []string) string {
	if len(args) > 1 {
		return replyTooManyArgs
	}

	if len(args) == 0 {
		trigger := protocol.MakeGUI{Viewer: sender}
		if err := c.sendToPlayer(ctx, sender, trigger.Encode()); err != nil {
			c.logger.Warnf("could not open friend GUI for %s: %v", sender, err)
			return replyStorageDown
		}
		return ""
	}

	name := args[0]
	if strings.EqualFold(name, senderName) {
		return replySelfFriend
	}

	friend, err := c.players.ByUsername(ctx, name)
	if errors.Is(err, database.ErrNotFound) {
		return replyNoSuchPlayer
	}
	if err != nil {
		c.logger.Warnf("failed to resolve %q: %v", name, err)
		return replyStorageDown
	}

	already, err := c.friends.HasEdge(ctx, sender, friend.ID)
	if err != nil {
		c.logger.Warnf("failed to check edge %s -> %s: %v", sender, friend.ID, err)
		return replyStorageDown
	}
	if already {
		return replyAlreadyFriend
	}

	if err := c.friends.AddEdge(ctx, sender, friend.ID); err != nil {
		c.logger.Warnf("failed to add edge %s -> %s: %v", sender, friend.ID, err)
		return replyStorageDown
	}

	c.maybeNotify(ctx, sender, senderName, friend.ID)
	return replyFriendAdded
}

// maybeNotify tells the new friend they were added, at most once per pair
// per cooldown window, and only while they are online.
func (c *Commands) maybeNotify(ctx context.Context, sender uuid.UUID, senderName string, receiver uuid.UUID) {
	_, live, err := c.presence.Lookup(ctx, receiver)
	if err != nil {
		c.logger.Warnf("presence lookup for %s failed, skipping notification: %v", receiver, err)
		return
	}
	if !live {
		return
	}
	if !c.cooldown.ShouldNotify(sender, receiver) {
		return
	}

	msg := protocol.Notify{Player: receiver, Text: senderName + " added you as a friend!"}
	if err := c.sendToPlayer(ctx, receiver, msg.Encode()); err != nil {
		c.logger.Warnf("could not deliver friend notification to %s: %v", receiver, err)
	}
}

// Unfriend handles "/unfriend <name>".
func (c *Commands) Unfriend(ctx context.Context, sender uuid.UUID, args []string) string {
	if len(args) != 1 {
		return replyTooManyArgs
	}

	friend, err := c.players.ByUsername(ctx, args[0])
	if errors.Is(err, database.ErrNotFound) {
		return replyNoSuchPlayer
	}
	if err != nil {
		c.logger.Warnf("failed to resolve %q: %v", args[0], err)
		return replyStorageDown
	}

	exists, err := c.friends.HasEdge(ctx, sender, friend.ID)
	if err != nil {
		c.logger.Warnf("failed to check edge %s -> %s: %v", sender, friend.ID, err)
		return replyStorageDown
	}
	if !exists {
		return replyNotAFriend
	}

	if err := c.friends.RemoveEdge(ctx, sender, friend.ID); err != nil {
		c.logger.Warnf("failed to remove edge %s -> %s: %v", sender, friend.ID, err)
		return replyStorageDown
	}
	return replyUnfriended
}

// Suggest returns the currently-connected player names for autocompletion
// of the name argument.
func (c *Commands) Suggest(ctx context.Context) []string {
	names, err := c.presence.OnlineUsernames(ctx)
	if err != nil {
		c.logger.Warnf("failed to list online usernames: %v", err)
		return nil
	}
	return names
}

func (c *Commands) sendToPlayer(ctx context.Context, player uuid.UUID, payload []byte) error {
	server, live, err := c.presence.Lookup(ctx, player)
	if err != nil {
		return err
	}
	if !live {
		return errors.New("player has no live presence")
	}
	return c.router.SendToBackend(server, payload)
}
