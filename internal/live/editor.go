package live

import (
	"fmt"
	"sort"
	"sync"
	"unicode/utf16"

	"github.com/patrickward/livepad/internal/protocol"
	"github.com/patrickward/livepad/internal/scrollsync"
)

// remoteEditor mirrors the browser's editor. It holds the latest text the
// browser sent and the cursor line it reported. Offsets are counted in
// UTF-16 code units because that is what the browser's selection API uses.
type remoteEditor struct {
	mu         sync.Mutex
	text       string
	lineStarts []int
	cursor     int
	detached   bool
	changes    subscribers[func()]
	send       func(protocol.Message)
}

func newRemoteEditor(text string, send func(protocol.Message)) *remoteEditor {
	return &remoteEditor{
		text:       text,
		lineStarts: lineStarts(text),
		cursor:     1,
		send:       send,
	}
}

// lineStarts returns the UTF-16 offset at which each line of text begins.
func lineStarts(text string) []int {
	starts := []int{0}
	offset := 0
	for _, r := range text {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		offset += n
		if r == '\n' {
			starts = append(starts, offset)
		}
	}
	return starts
}

func (e *remoteEditor) CursorLine() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

func (e *remoteEditor) LineOffset(line int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if line < 1 || line > len(e.lineStarts) {
		return 0, fmt.Errorf("line %d of %d: %w", line, len(e.lineStarts), scrollsync.ErrLineOutOfRange)
	}
	return e.lineStarts[line-1], nil
}

// MoveCursor tells the browser to place the cursor at offset. The browser
// reports the new position back as a cursor message.
func (e *remoteEditor) MoveCursor(offset int) {
	e.mu.Lock()
	line := sort.Search(len(e.lineStarts), func(i int) bool { return e.lineStarts[i] > offset })
	e.cursor = max(line, 1)
	msg := &protocol.SetCursor{Line: e.cursor, Offset: offset}
	e.mu.Unlock()

	e.send(msg)
}

// Focus is a no-op: set-cursor focuses the editor in the browser.
func (e *remoteEditor) Focus() {}

func (e *remoteEditor) OnChange(fn func()) func() {
	return e.changes.add(fn)
}

func (e *remoteEditor) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.detached
}

// Text returns the document as last sent by the browser.
func (e *remoteEditor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// setText replaces the document. A cursorLine of zero keeps the cursor.
func (e *remoteEditor) setText(text string, cursorLine int) {
	e.mu.Lock()
	e.text = text
	e.lineStarts = lineStarts(text)
	if cursorLine > 0 {
		e.cursor = cursorLine
	}
	e.mu.Unlock()

	e.notify()
}

func (e *remoteEditor) setCursor(line int) {
	e.mu.Lock()
	e.cursor = line
	e.mu.Unlock()

	e.notify()
}

func (e *remoteEditor) detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detached = true
}

func (e *remoteEditor) notify() {
	for _, fn := range e.changes.snapshot() {
		fn()
	}
}
