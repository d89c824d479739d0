// Package scrollsync keeps an editor cursor and a rendered preview in step
// in both directions without the two views triggering each other.
package scrollsync

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/patrickward/livepad/internal/logging"
	"github.com/patrickward/livepad/internal/sourcemap"
)

// ErrLineOutOfRange is returned by editors asked for a line they don't have.
var ErrLineOutOfRange = errors.New("line out of range")

// Editor is the text side of a session.
type Editor interface {
	// CursorLine returns the 1-based line holding the cursor.
	CursorLine() int
	// LineOffset returns the document offset where line starts.
	LineOffset(line int) (int, error)
	// MoveCursor places the cursor at offset and scrolls it into view.
	MoveCursor(offset int)
	Focus()
	OnChange(fn func()) (unsubscribe func())
}

// Preview is the rendered side of a session.
type Preview interface {
	// Root returns the current rendered tree.
	Root() *html.Node
	ScrollToCenter(rec sourcemap.Record)
	Highlight(rec sourcemap.Record)
	ClearHighlight(rec sourcemap.Record)
	OnClick(fn func(target *html.Node)) (unsubscribe func())
	// OnRender fires after the rendered tree was replaced.
	OnRender(fn func()) (unsubscribe func())
}

// Mounter is implemented by views that can be detached. A detached view
// is treated like a missing one.
type Mounter interface {
	Mounted() bool
}

// Options configures a Session. Zero durations take their defaults.
type Options struct {
	EditorDebounce    time.Duration // quiet period before an editor change syncs the preview
	RebuildSettle     time.Duration // quiet period before the source map is rebuilt
	ReentryGuard      time.Duration // how long programmatic moves suppress sync
	HighlightDuration time.Duration // how long a synced element stays highlighted
	Clock             Clock
	Logger            *zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		EditorDebounce:    150 * time.Millisecond,
		RebuildSettle:     100 * time.Millisecond,
		ReentryGuard:      300 * time.Millisecond,
		HighlightDuration: time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.EditorDebounce <= 0 {
		o.EditorDebounce = def.EditorDebounce
	}
	if o.RebuildSettle <= 0 {
		o.RebuildSettle = def.RebuildSettle
	}
	if o.ReentryGuard <= 0 {
		o.ReentryGuard = def.ReentryGuard
	}
	if o.HighlightDuration <= 0 {
		o.HighlightDuration = def.HighlightDuration
	}
	if o.Clock == nil {
		o.Clock = RealClock()
	}
	if o.Logger == nil {
		l := logging.Component("scrollsync")
		o.Logger = &l
	}
	return o
}

// Session syncs one editor with one preview. All handlers and timer
// callbacks are serialized, so they observe state as if run on a single
// thread.
type Session struct {
	mu      sync.Mutex
	editor  Editor
	preview Preview
	opts    Options
	log     zerolog.Logger

	sourceMap atomic.Pointer[sourcemap.SourceMap]

	// programmatic is set while a move made by the session is settling;
	// it suppresses sync in both directions.
	programmatic   bool
	lastSyncedLine int
	guard          Timer
	guardGen       uint64

	highlights    map[uint64]Timer
	nextHighlight uint64

	editorDebounce *Debouncer
	rebuild        *Debouncer

	unsubscribe []func()
	closed      bool
}

// Wire subscribes a new session to the editor and preview and builds the
// initial source map. Either side may be nil; the matching direction is
// then a no-op. Close releases every subscription.
func Wire(editor Editor, preview Preview, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		editor:     editor,
		preview:    preview,
		opts:       opts,
		log:        *opts.Logger,
		highlights: make(map[uint64]Timer),
	}
	s.sourceMap.Store(sourcemap.Build(nil))
	s.editorDebounce = NewDebouncer(opts.Clock, opts.EditorDebounce, s.SyncEditorToPreview)
	s.rebuild = NewDebouncer(opts.Clock, opts.RebuildSettle, s.Rebuild)

	if editor != nil {
		s.unsubscribe = append(s.unsubscribe, editor.OnChange(s.EditorChanged))
	}
	if preview != nil {
		s.unsubscribe = append(s.unsubscribe,
			preview.OnClick(s.PreviewClicked),
			preview.OnRender(s.ContentChanged),
		)
	}

	s.Rebuild()
	return s
}

// EditorChanged schedules an editor to preview sync.
func (s *Session) EditorChanged() {
	if s.isClosed() {
		return
	}
	s.editorDebounce.Trigger()
}

// ContentChanged schedules a source map rebuild once the rendered tree has
// settled.
func (s *Session) ContentChanged() {
	if s.isClosed() {
		return
	}
	s.rebuild.Trigger()
}

// Sync runs an editor to preview sync now, even for the line synced last.
// It is still dropped while a programmatic move is settling.
func (s *Session) Sync() {
	s.editorDebounce.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.lastSyncedLine = 0
	s.syncEditorLocked()
}

// SyncEditorToPreview scrolls the preview to the element rendered from
// the editor's cursor line.
func (s *Session) SyncEditorToPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.syncEditorLocked()
}

func (s *Session) syncEditorLocked() {
	if s.programmatic || !mounted(s.editor) || !mounted(s.preview) {
		return
	}

	line := s.editor.CursorLine()
	if line < 1 || line == s.lastSyncedLine {
		return
	}
	s.lastSyncedLine = line

	rec, ok := sourcemap.Locate(s.sourceMap.Load(), line)
	if !ok {
		return
	}

	s.beginProgrammaticLocked()
	s.preview.ScrollToCenter(rec)
	s.highlightLocked(rec)

	s.log.Debug().
		Int("line", line).
		Int("start", rec.Start).
		Int("end", rec.End).
		Msg("synced preview to editor")
}

// PreviewClicked moves the editor cursor to the first source line of the
// nearest annotated element enclosing target.
func (s *Session) PreviewClicked(target *html.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.programmatic || !mounted(s.editor) {
		return
	}

	_, r, ok := sourcemap.Enclosing(target)
	if !ok || r.Start < 1 {
		return
	}

	offset, err := s.editor.LineOffset(r.Start)
	if err != nil {
		s.log.Warn().Err(err).Int("line", r.Start).Msg("failed to move editor to line")
		return
	}

	s.beginProgrammaticLocked()
	s.editor.MoveCursor(offset)
	s.editor.Focus()

	s.log.Debug().Int("line", r.Start).Msg("synced editor to preview")
}

// Rebuild replaces the source map with one built from the preview's
// current tree.
func (s *Session) Rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !mounted(s.preview) {
		return
	}
	m := sourcemap.Build(s.preview.Root())
	s.sourceMap.Store(m)

	s.log.Debug().Int("records", m.Len()).Msg("rebuilt source map")
}

// SourceMap returns the current source map.
func (s *Session) SourceMap() *sourcemap.SourceMap {
	return s.sourceMap.Load()
}

// Close unsubscribes from both views and stops every pending timer. It is
// safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	unsubscribe := s.unsubscribe
	s.unsubscribe = nil

	if s.guard != nil {
		s.guard.Stop()
		s.guard = nil
	}
	s.programmatic = false

	for id, t := range s.highlights {
		t.Stop()
		delete(s.highlights, id)
	}
	s.mu.Unlock()

	s.editorDebounce.Cancel()
	s.rebuild.Cancel()

	for _, fn := range unsubscribe {
		if fn != nil {
			fn()
		}
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) beginProgrammaticLocked() {
	if s.guard != nil {
		s.guard.Stop()
	}
	s.programmatic = true
	s.guardGen++
	gen := s.guardGen

	s.guard = s.opts.Clock.AfterFunc(s.opts.ReentryGuard, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.guardGen != gen {
			return
		}
		s.programmatic = false
		s.guard = nil
	})
}

func (s *Session) highlightLocked(rec sourcemap.Record) {
	s.preview.Highlight(rec)

	s.nextHighlight++
	id := s.nextHighlight
	s.highlights[id] = s.opts.Clock.AfterFunc(s.opts.HighlightDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, ok := s.highlights[id]; !ok {
			return
		}
		delete(s.highlights, id)
		if mounted(s.preview) {
			s.preview.ClearHighlight(rec)
		}
	})
}

func mounted(view any) bool {
	if view == nil {
		return false
	}
	if m, ok := view.(Mounter); ok {
		return m.Mounted()
	}
	return true
}
