// internal/backend/session.go
package backend

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/friendgate/internal/protocol"
)

// GUI layout constants. Entries fill rows of nine slots; one extra row
// below them holds the navigation controls.
const (
	slotsPerRow   = 9
	maxEntryRows  = 5
	pageSize      = protocol.MaxPageSize
	guiTitle      = "Your friends"
	indicatorSlot = 4
	previousSlot  = 3
	nextSlot      = 5
)

// Player-facing lines owned by the session.
const (
	msgHiddenEntry  = "Error: this player has not added you to their friends list."
	msgPageTimedOut = "Your friends list is taking a while to load, hang tight or reopen it."
)

type sessionState int

const (
	stateLoading sessionState = iota
	stateDisplaying
	stateClosed
)

// Entry is one friend shown in the GUI: identity plus display name,
// snapshotted when the session opens.
type Entry struct {
	ID   uuid.UUID
	Name string
}

// Session is the live state of one viewer's open friend-list GUI. All
// mutable fields are guarded by mu; protocol responses, clicks and timer
// callbacks may arrive on different goroutines.
type Session struct {
	mu sync.Mutex

	viewer  uuid.UUID
	pages   [][]Entry
	rows    int
	current int
	state   sessionState
	labels  []string

	// seq is the sequence of the latest GetServersNames this session
	// issued; responses carrying any other sequence are stale and dropped.
	seq     uint64
	counter *atomic.Uint64

	sender  Sender
	host    Host
	logger  *logrus.Logger
	timeout time.Duration
	timer   *time.Timer

	// onClose deregisters the session from its registry.
	onClose func(s *Session)
}

// NewSession partitions a non-empty friend list into fixed-size pages.
// The caller short-circuits the empty case before ever constructing a
// session.
func NewSession(viewer uuid.UUID, entries []Entry, sender Sender, host Host, counter *atomic.Uint64, timeout time.Duration, logger *logrus.Logger, onClose func(*Session)) (*Session, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("refusing to open a friend GUI with no entries")
	}

	var pages [][]Entry
	for start := 0; start < len(entries); start += pageSize {
		end := start + pageSize
		if end > len(entries) {
			end = len(entries)
		}
		pages = append(pages, entries[start:end])
	}

	rows := (len(pages[0]) + slotsPerRow - 1) / slotsPerRow
	if rows > maxEntryRows {
		rows = maxEntryRows
	}

	return &Session{
		viewer:  viewer,
		pages:   pages,
		rows:    rows,
		state:   stateLoading,
		counter: counter,
		sender:  sender,
		host:    host,
		logger:  logger,
		timeout: timeout,
		onClose: onClose,
	}, nil
}

// PageCount reports how many pages the snapshot produced.
func (s *Session) PageCount() int {
	return len(s.pages)
}

// Open requests the first page.
func (s *Session) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestPageLocked(0)
}

// requestPageLocked transitions to Loading(index) and asks the gateway to
// resolve exactly that page's candidates. Caller holds mu.
func (s *Session) requestPageLocked(index int) {
	if s.state == stateClosed {
		return
	}
	if index < 0 || index >= len(s.pages) {
		return
	}

	s.current = index
	s.state = stateLoading
	s.labels = nil
	s.seq = s.counter.Add(1)

	candidates := make([]uuid.UUID, len(s.pages[index]))
	for i, entry := range s.pages[index] {
		candidates[i] = entry.ID
	}
	req := protocol.GetServersNames{Seq: s.seq, Viewer: s.viewer, Candidates: candidates}
	s.sender.Send(req.Encode())

	if s.timer != nil {
		s.timer.Stop()
	}
	if s.timeout > 0 {
		seq := s.seq
		s.timer = time.AfterFunc(s.timeout, func() {
			s.loadTimedOut(seq)
		})
	}
}

// loadTimedOut tells the viewer the page is stuck. The session stays in
// Loading so a late response can still recover it.
func (s *Session) loadTimedOut(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateLoading || s.seq != seq {
		return
	}
	s.logger.Warnf("page %d for viewer %s timed out awaiting labels", s.current, s.viewer)
	s.host.Message(s.viewer, msgPageTimedOut)
}

// ApplyLabels binds a response to the page still being displayed. Stale
// sequences and closed sessions drop the response silently; a response
// must never resurrect a closed session.
func (s *Session) ApplyLabels(seq uint64, labels []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return
	}
	if seq != s.seq {
		s.logger.Debugf("dropping stale label response (seq %d, current %d) for viewer %s", seq, s.seq, s.viewer)
		return
	}
	if len(labels) != len(s.pages[s.current]) {
		s.logger.Warnf("label count %d does not match page size %d for viewer %s, dropping", len(labels), len(s.pages[s.current]), s.viewer)
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.labels = labels
	s.state = stateDisplaying
	s.host.OpenGUI(s.viewer, s.renderLocked())
}

// renderLocked builds the current page's slots. Caller holds mu.
func (s *Session) renderLocked() Page {
	total := (s.rows + 1) * slotsPerRow
	slots := make([]Slot, total)

	entries := s.pages[s.current]
	for i, entry := range entries {
		label := ""
		if i < len(s.labels) {
			label = s.labels[i]
		}
		slots[i] = Slot{Kind: SlotEntry, Name: entry.Name, Label: label}
	}

	navBase := s.rows * slotsPerRow
	if s.current > 0 {
		slots[navBase+previousSlot] = Slot{Kind: SlotPrevious, Name: "Previous page"}
	}
	slots[navBase+indicatorSlot] = Slot{
		Kind: SlotIndicator,
		Name: fmt.Sprintf("Page %d/%d", s.current+1, len(s.pages)),
	}
	if s.current < len(s.pages)-1 {
		slots[navBase+nextSlot] = Slot{Kind: SlotNext, Name: "Next page"}
	}

	return Page{Title: guiTitle, Rows: s.rows + 1, Slots: slots}
}

// HandleClick reacts to the viewer interacting with one slot: navigation,
// a rejection for hidden friends, or a join request.
func (s *Session) HandleClick(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return
	}

	navBase := s.rows * slotsPerRow
	switch slot {
	case navBase + previousSlot:
		if s.current > 0 {
			s.requestPageLocked(s.current - 1)
		}
		return
	case navBase + nextSlot:
		if s.current < len(s.pages)-1 {
			s.requestPageLocked(s.current + 1)
		}
		return
	}

	entries := s.pages[s.current]
	if slot < 0 || slot >= len(entries) {
		return
	}
	if s.state != stateDisplaying || slot >= len(s.labels) {
		// Page still loading; nothing meaningful to click yet.
		return
	}

	if s.labels[slot] == protocol.LabelHidden {
		s.host.Message(s.viewer, msgHiddenEntry)
		return
	}

	req := protocol.Join{Requester: s.viewer, Target: entries[slot].ID}
	s.sender.Send(req.Encode())
}

// Close transitions to the terminal state and deregisters the session.
// In-flight requests are not retracted; their late responses are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return
	}
	s.state = stateClosed
	if s.timer != nil {
		s.timer.Stop()
	}
	onClose := s.onClose
	s.mu.Unlock()

	if onClose != nil {
		onClose(s)
	}
}

// Viewer identifies the player this session belongs to.
func (s *Session) Viewer() uuid.UUID {
	return s.viewer
}
