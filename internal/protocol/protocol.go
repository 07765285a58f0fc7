// internal/protocol/protocol.go
package protocol

import "github.com/google/uuid"

// ChannelName identifies the single logical channel both processes speak
// over. Each websocket binary message is exactly one datagram: a tag
// followed by the tag's payload fields.
const ChannelName = "core:friendcommand"

// Message tags.
const (
	TagMakeGUI            = "MakeGUI"
	TagGetServersNames    = "GetServersNames"
	TagUpdateServersNames = "UpdateServersNames"
	TagJoin               = "Join"
	TagTransfer           = "Transfer"
	TagNotify             = "Notify"
)

// Labels the gateway resolves a friend's whereabouts to. Anything else is
// the name of the backend instance hosting the friend.
const (
	LabelHidden        = "Hidden"
	LabelOffline       = "Offline"
	LabelUnknownServer = "Unknown server"
)

// MaxPageSize is the largest candidate batch one GetServersNames request
// may carry; it matches the GUI page size.
const MaxPageSize = 45

// MakeGUI asks a backend instance to open the friend-list GUI for a
// connected viewer.
type MakeGUI struct {
	Viewer uuid.UUID
}

// GetServersNames asks the gateway to resolve one GUI page of candidates.
// Seq correlates the eventual UpdateServersNames with this request.
type GetServersNames struct {
	Seq        uint64
	Viewer     uuid.UUID
	Candidates []uuid.UUID
}

// UpdateServersNames answers a GetServersNames. Labels are positionally
// aligned with the request's candidate list.
type UpdateServersNames struct {
	Seq    uint64
	Viewer uuid.UUID
	Labels []string
}

// Join asks the gateway to move the requester to the backend instance
// currently hosting the target.
type Join struct {
	Requester uuid.UUID
	Target    uuid.UUID
}

// Transfer instructs a backend instance to hand a player it hosts off to
// the named backend instance.
type Transfer struct {
	Player uuid.UUID
	Server string
}

// Notify delivers a chat line to a player hosted by the receiving backend
// instance.
type Notify struct {
	Player uuid.UUID
	Text   string
}
