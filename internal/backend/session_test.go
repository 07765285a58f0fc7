// internal/backend/session_test.go
package backend

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordwell/friendgate/internal/protocol"
)

// mockSender decodes and collects everything sent toward the gateway.
type mockSender struct {
	mu   sync.Mutex
	sent []interface{}
}

func (m *mockSender) Send(payload []byte) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

func (m *mockSender) last() interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// mockHost collects player-facing effects.
type mockHost struct {
	mu        sync.Mutex
	pages     []Page
	messages  map[uuid.UUID][]string
	transfers map[uuid.UUID][]string
}

func newMockHost() *mockHost {
	return &mockHost{
		messages:  make(map[uuid.UUID][]string),
		transfers: make(map[uuid.UUID][]string),
	}
}

func (m *mockHost) OpenGUI(_ uuid.UUID, page Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append(m.pages, page)
}

func (m *mockHost) Message(player uuid.UUID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[player] = append(m.messages[player], text)
}

func (m *mockHost) Transfer(player uuid.UUID, server string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[player] = append(m.transfers[player], server)
}

func (m *mockHost) lastPage() *Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pages) == 0 {
		return nil
	}
	return &m.pages[len(m.pages)-1]
}

func (m *mockHost) pageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages)
}

func makeEntries(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{ID: uuid.New(), Name: "friend"}
	}
	return entries
}

func newTestSession(t *testing.T, entries []Entry, timeout time.Duration) (*Session, *mockSender, *mockHost) {
	t.Helper()
	sender := &mockSender{}
	host := newMockHost()
	counter := &atomic.Uint64{}
	s, err := NewSession(uuid.New(), entries, sender, host, counter, timeout, logrus.New(), nil)
	require.NoError(t, err)
	return s, sender, host
}

func TestPagination(t *testing.T) {
	for _, tc := range []struct {
		entries int
		pages   int
	}{
		{1, 1},
		{44, 1},
		{45, 1},
		{46, 2},
		{90, 2},
		{91, 3},
	} {
		s, _, _ := newTestSession(t, makeEntries(tc.entries), 0)
		assert.Equal(t, tc.pages, s.PageCount(), "%d entries", tc.entries)
	}
}

func TestEmptyListRefused(t *testing.T) {
	_, err := NewSession(uuid.New(), nil, &mockSender{}, newMockHost(), &atomic.Uint64{}, 0, logrus.New(), nil)
	assert.Error(t, err, "empty lists short-circuit before a session exists")
}

func TestOpenRequestsFirstPage(t *testing.T) {
	entries := makeEntries(50)
	s, sender, _ := newTestSession(t, entries, 0)

	s.Open()

	req, ok := sender.last().(protocol.GetServersNames)
	require.True(t, ok)
	require.Len(t, req.Candidates, 45, "first page carries exactly the page's uuids")
	for i, entry := range entries[:45] {
		assert.Equal(t, entry.ID, req.Candidates[i])
	}
}

func TestApplyLabelsRendersPage(t *testing.T) {
	entries := makeEntries(3)
	s, sender, host := newTestSession(t, entries, 0)
	s.Open()

	req := sender.last().(protocol.GetServersNames)
	s.ApplyLabels(req.Seq, []string{"lobby-1", protocol.LabelOffline, protocol.LabelHidden})

	page := host.lastPage()
	require.NotNil(t, page)
	assert.Equal(t, "Your friends", page.Title)

	assert.Equal(t, SlotEntry, page.Slots[0].Kind)
	assert.Equal(t, "lobby-1", page.Slots[0].Label)
	assert.Equal(t, protocol.LabelOffline, page.Slots[1].Label)
	assert.Equal(t, SlotFiller, page.Slots[3].Kind, "unused slots hold filler")

	// Single page: both nav controls hidden, indicator shown.
	navBase := 1 * 9
	assert.Equal(t, SlotFiller, page.Slots[navBase+3].Kind)
	assert.Equal(t, SlotIndicator, page.Slots[navBase+4].Kind)
	assert.Equal(t, "Page 1/1", page.Slots[navBase+4].Name)
	assert.Equal(t, SlotFiller, page.Slots[navBase+5].Kind)
}

func TestStaleResponseDiscarded(t *testing.T) {
	entries := makeEntries(46)
	s, sender, host := newTestSession(t, entries, 0)
	s.Open()
	firstReq := sender.last().(protocol.GetServersNames)

	// Viewer navigates before the first answer lands.
	labels := make([]string, 45)
	s.ApplyLabels(firstReq.Seq, labels)
	require.Equal(t, 1, host.pageCount())

	navBase := 5 * 9
	s.HandleClick(navBase + 5) // next page
	secondReq := sender.last().(protocol.GetServersNames)
	require.NotEqual(t, firstReq.Seq, secondReq.Seq)

	// The delayed answer for page 0 must not render onto page 1.
	s.ApplyLabels(firstReq.Seq, labels)
	assert.Equal(t, 1, host.pageCount(), "stale response dropped")

	// The answer for the latest request binds.
	s.ApplyLabels(secondReq.Seq, []string{protocol.LabelOffline})
	assert.Equal(t, 2, host.pageCount())
}

func TestNavigationSlots(t *testing.T) {
	entries := makeEntries(46)
	s, sender, host := newTestSession(t, entries, 0)
	s.Open()

	req := sender.last().(protocol.GetServersNames)
	s.ApplyLabels(req.Seq, make([]string, 45))

	page := host.lastPage()
	navBase := 5 * 9
	assert.Equal(t, SlotFiller, page.Slots[navBase+3].Kind, "no previous on page 0")
	assert.Equal(t, "Page 1/2", page.Slots[navBase+4].Name)
	assert.Equal(t, SlotNext, page.Slots[navBase+5].Kind)

	s.HandleClick(navBase + 5)
	req = sender.last().(protocol.GetServersNames)
	require.Len(t, req.Candidates, 1, "second page holds the remainder")
	s.ApplyLabels(req.Seq, []string{protocol.LabelOffline})

	page = host.lastPage()
	assert.Equal(t, SlotPrevious, page.Slots[navBase+3].Kind)
	assert.Equal(t, "Page 2/2", page.Slots[navBase+4].Name)
	assert.Equal(t, SlotFiller, page.Slots[navBase+5].Kind, "no next on the last page")
}

func TestHiddenEntryClickRejected(t *testing.T) {
	entries := makeEntries(2)
	s, sender, host := newTestSession(t, entries, 0)
	s.Open()

	req := sender.last().(protocol.GetServersNames)
	s.ApplyLabels(req.Seq, []string{protocol.LabelHidden, "lobby-1"})

	before := sender.count()
	s.HandleClick(0)
	assert.Equal(t, before, sender.count(), "hidden entry sends nothing")
	assert.Contains(t, host.messages[s.Viewer()], msgHiddenEntry)

	s.HandleClick(1)
	join, ok := sender.last().(protocol.Join)
	require.True(t, ok)
	assert.Equal(t, s.Viewer(), join.Requester)
	assert.Equal(t, entries[1].ID, join.Target)
}

func TestClickDuringLoadingIgnored(t *testing.T) {
	s, sender, host := newTestSession(t, makeEntries(2), 0)
	s.Open()

	before := sender.count()
	s.HandleClick(0)
	assert.Equal(t, before, sender.count())
	assert.Empty(t, host.messages[s.Viewer()])
}

func TestClosedSessionDropsEverything(t *testing.T) {
	s, sender, host := newTestSession(t, makeEntries(2), 0)
	s.Open()
	req := sender.last().(protocol.GetServersNames)

	closed := false
	s.onClose = func(*Session) { closed = true }
	s.Close()
	assert.True(t, closed)

	// A late response must neither error nor resurrect the session.
	s.ApplyLabels(req.Seq, []string{"a", "b"})
	assert.Equal(t, 0, host.pageCount())

	before := sender.count()
	s.HandleClick(0)
	assert.Equal(t, before, sender.count())

	s.Close() // idempotent
}

func TestLoadingTimeoutFallsBackToMessage(t *testing.T) {
	s, sender, host := newTestSession(t, makeEntries(1), 30*time.Millisecond)
	s.Open()

	time.Sleep(80 * time.Millisecond)
	assert.Contains(t, host.messages[s.Viewer()], msgPageTimedOut)

	// A late response still recovers the page.
	req := sender.last().(protocol.GetServersNames)
	s.ApplyLabels(req.Seq, []string{protocol.LabelOffline})
	assert.Equal(t, 1, host.pageCount())
}
