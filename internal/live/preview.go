package live

import (
	"fmt"
	"sync"

	"golang.org/x/net/html"

	"github.com/patrickward/livepad/internal/protocol"
	"github.com/patrickward/livepad/internal/sourcemap"
)

// remotePreview mirrors the browser's preview pane. It parses the same
// sanitized HTML the browser renders, so element paths computed here
// address the same elements there.
type remotePreview struct {
	mu       sync.Mutex
	root     *html.Node
	detached bool
	clicks   subscribers[func(*html.Node)]
	renders  subscribers[func()]
	send     func(protocol.Message)
}

func newRemotePreview(send func(protocol.Message)) *remotePreview {
	root, _ := sourcemap.ParseFragment("")
	return &remotePreview{root: root, send: send}
}

func (p *remotePreview) Root() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root
}

func (p *remotePreview) ScrollToCenter(rec sourcemap.Record) {
	p.send(&protocol.ScrollPreview{
		Path:      sourcemap.Path(rec.Node),
		StartLine: rec.Start,
		EndLine:   rec.End,
	})
}

func (p *remotePreview) Highlight(rec sourcemap.Record) {
	p.send(&protocol.Highlight{Path: sourcemap.Path(rec.Node), On: true})
}

func (p *remotePreview) ClearHighlight(rec sourcemap.Record) {
	p.send(&protocol.Highlight{Path: sourcemap.Path(rec.Node), On: false})
}

func (p *remotePreview) OnClick(fn func(*html.Node)) func() {
	return p.clicks.add(fn)
}

func (p *remotePreview) OnRender(fn func()) func() {
	return p.renders.add(fn)
}

func (p *remotePreview) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.detached
}

// replace swaps in a newly rendered fragment and notifies subscribers.
func (p *remotePreview) replace(fragment string) error {
	root, err := sourcemap.ParseFragment(fragment)
	if err != nil {
		return fmt.Errorf("failed to parse rendered preview: %w", err)
	}

	p.mu.Lock()
	p.root = root
	p.mu.Unlock()

	for _, fn := range p.renders.snapshot() {
		fn()
	}
	return nil
}

// click dispatches a click on the element at path. A path that no longer
// exists dispatches a nil target.
func (p *remotePreview) click(path []int) {
	target := sourcemap.Resolve(p.Root(), path)
	for _, fn := range p.clicks.snapshot() {
		fn(target)
	}
}

func (p *remotePreview) detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detached = true
}
