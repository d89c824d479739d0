package scrollsync_test

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/patrickward/livepad/internal/scrollsync"
	"github.com/patrickward/livepad/internal/sourcemap"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	fn      func()
	done    bool
	stopped bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) scrollsync.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.done {
		return false
	}
	t.done, t.stopped = true, true
	return true
}

// Advance moves time forward, running due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.done || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.done = true
		c.mu.Unlock()

		next.fn()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

type subscribers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]T
}

func (s *subscribers[T]) add(fn T) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]T)
	}
	s.next++
	id := s.next
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *subscribers[T]) snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]T, 0, len(s.fns))
	for _, fn := range s.fns {
		out = append(out, fn)
	}
	return out
}

func (s *subscribers[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

type fakeEditor struct {
	mu        sync.Mutex
	lines     int
	cursor    int
	moves     []int
	focused   int
	unmounted bool
	changes   subscribers[func()]
}

func newFakeEditor(lines int) *fakeEditor {
	return &fakeEditor{lines: lines, cursor: 1}
}

func (e *fakeEditor) CursorLine() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// LineOffset pretends every line is ten bytes long.
func (e *fakeEditor) LineOffset(line int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if line < 1 || line > e.lines {
		return 0, fmt.Errorf("line %d of %d: %w", line, e.lines, scrollsync.ErrLineOutOfRange)
	}
	return (line - 1) * 10, nil
}

func (e *fakeEditor) MoveCursor(offset int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.moves = append(e.moves, offset)
	e.cursor = offset/10 + 1
}

func (e *fakeEditor) Focus() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused++
}

func (e *fakeEditor) OnChange(fn func()) func() {
	return e.changes.add(fn)
}

func (e *fakeEditor) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.unmounted
}

// SetCursor moves the cursor as a user would and notifies subscribers.
func (e *fakeEditor) SetCursor(line int) {
	e.mu.Lock()
	e.cursor = line
	e.mu.Unlock()

	for _, fn := range e.changes.snapshot() {
		fn()
	}
}

func (e *fakeEditor) Moves() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.moves...)
}

type fakePreview struct {
	mu          sync.Mutex
	root        *html.Node
	scrolled    []sourcemap.Range
	highlighted []sourcemap.Range
	cleared     []sourcemap.Range
	unmounted   bool
	clicks      subscribers[func(*html.Node)]
	renders     subscribers[func()]
}

func newFakePreview(fragment string) *fakePreview {
	root, err := sourcemap.ParseFragment(fragment)
	if err != nil {
		panic(err)
	}
	return &fakePreview{root: root}
}

func (p *fakePreview) Root() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root
}

func (p *fakePreview) ScrollToCenter(rec sourcemap.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolled = append(p.scrolled, rec.Range)
}

func (p *fakePreview) Highlight(rec sourcemap.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.highlighted = append(p.highlighted, rec.Range)
}

func (p *fakePreview) ClearHighlight(rec sourcemap.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = append(p.cleared, rec.Range)
}

func (p *fakePreview) OnClick(fn func(*html.Node)) func() {
	return p.clicks.add(fn)
}

func (p *fakePreview) OnRender(fn func()) func() {
	return p.renders.add(fn)
}

func (p *fakePreview) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.unmounted
}

// Render swaps the tree and notifies subscribers.
func (p *fakePreview) Render(fragment string) {
	root, err := sourcemap.ParseFragment(fragment)
	if err != nil {
		panic(err)
	}
	p.mu.Lock()
	p.root = root
	p.mu.Unlock()

	for _, fn := range p.renders.snapshot() {
		fn()
	}
}

// Click dispatches a click on the element at path.
func (p *fakePreview) Click(path ...int) {
	target := sourcemap.Resolve(p.Root(), path)
	for _, fn := range p.clicks.snapshot() {
		fn(target)
	}
}

func (p *fakePreview) Scrolled() []sourcemap.Range {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sourcemap.Range(nil), p.scrolled...)
}

func (p *fakePreview) Highlighted() []sourcemap.Range {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sourcemap.Range(nil), p.highlighted...)
}

func (p *fakePreview) Cleared() []sourcemap.Range {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sourcemap.Range(nil), p.cleared...)
}

func testOptions(clock *fakeClock, logs *bytes.Buffer) scrollsync.Options {
	opts := scrollsync.DefaultOptions()
	opts.Clock = clock
	logger := zerolog.New(logs)
	opts.Logger = &logger
	return opts
}
