// internal/backend/render.go
package backend

import "github.com/google/uuid"

// The GUI itself (icons, textures, inventory windows) belongs to the host
// runtime. This package renders pages down to semantic slots and hands
// them across the Host boundary.

// SlotKind says what occupies one GUI slot.
type SlotKind int

const (
	// SlotFiller is the inert pane filling unused slots.
	SlotFiller SlotKind = iota
	// SlotEntry is one friend: display name plus resolved location label.
	SlotEntry
	// SlotPrevious navigates one page back; hidden on the first page.
	SlotPrevious
	// SlotNext navigates one page forward; hidden on the last page.
	SlotNext
	// SlotIndicator shows "Page current/total".
	SlotIndicator
)

// Slot is one rendered GUI position.
type Slot struct {
	Kind  SlotKind
	Name  string
	Label string
}

// Page is one fully rendered GUI page.
type Page struct {
	Title string
	Rows  int
	Slots []Slot
}

// Host is everything the backend needs from its hosting runtime to face
// the player: rendering, chat lines, and the actual connection hand-off.
type Host interface {
	OpenGUI(viewer uuid.UUID, page Page)
	Message(player uuid.UUID, text string)
	Transfer(player uuid.UUID, server string)
}

// Sender pushes one encoded datagram toward the gateway, fire-and-forget.
// *Client satisfies it.
type Sender interface {
	Send(payload []byte)
}
