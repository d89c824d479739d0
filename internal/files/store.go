package files

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickward/livepad/internal/contentutil"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidID        = errors.New("invalid document id")
)

const welcomeDocument = `# Welcome to livepad

Type on the left and the preview on the right follows your cursor.
Click any block in the preview to jump back to its source line.

## Things to try

- [x] Open this document
- [ ] Move the cursor into the table below
- [ ] Click the code block in the preview

| Key | Action |
|-----|--------|
| Click | Jump to source |
| Type | Follow cursor |

` + "```go\nfmt.Println(\"hello\")\n```\n"

// DocumentInfo describes a Markdown document in the data directory.
type DocumentInfo struct {
	ID      string // Path without the .md extension
	Path    string
	Title   string
	ModTime time.Time
}

// Store opens and saves Markdown documents confined to a RootManager.
type Store struct {
	root  *RootManager
	crypt *EncryptionManager
	mu    sync.Mutex
}

// NewStore creates a store. crypt may be nil when encryption is not configured.
func NewStore(root *RootManager, crypt *EncryptionManager) *Store {
	if crypt == nil {
		crypt = NewEncryptionManager()
	}
	return &Store{root: root, crypt: crypt}
}

// Initialize seeds an empty data directory with a welcome document.
func (s *Store) Initialize() error {
	docs, err := s.List()
	if err != nil {
		return err
	}
	if len(docs) > 0 {
		return nil
	}
	if err := s.root.WriteString("welcome.md", welcomeDocument); err != nil {
		return fmt.Errorf("failed to create welcome document: %w", err)
	}
	return nil
}

// List returns every document sorted by ID.
func (s *Store) List() ([]DocumentInfo, error) {
	results, err := s.root.Scan(".", func(p string, d fs.DirEntry) bool {
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return false
		}
		return strings.HasSuffix(p, ".md")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}

	docs := make([]DocumentInfo, 0, len(results))
	for _, r := range results {
		info := documentInfo(r.Path)
		if stat, err := s.root.Stat(r.Path); err == nil {
			info.ModTime = stat.ModTime()
		}
		docs = append(docs, info)
	}

	slices.SortFunc(docs, func(a, b DocumentInfo) int {
		return strings.Compare(a.ID, b.ID)
	})
	return docs, nil
}

// Get returns an existing document.
func (s *Store) Get(id string) (*Document, error) {
	p, err := documentPath(id)
	if err != nil {
		return nil, err
	}

	stat, err := s.root.Stat(p)
	if err != nil || stat.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	info := documentInfo(p)
	info.ModTime = stat.ModTime()
	return &Document{Info: info, store: s}, nil
}

// Create returns the document for id, writing initial content if it does
// not exist yet.
func (s *Store) Create(id, content string) (*Document, error) {
	if doc, err := s.Get(id); err == nil {
		return doc, nil
	} else if !errors.Is(err, ErrDocumentNotFound) {
		return nil, err
	}

	p, _ := documentPath(id)
	doc := &Document{Info: documentInfo(p), store: s}
	if err := doc.Save(content); err != nil {
		return nil, err
	}
	return doc, nil
}

func documentPath(id string) (string, error) {
	id = strings.TrimSuffix(strings.TrimSpace(id), ".md")
	if id == "" || strings.HasPrefix(id, "/") || path.Clean(id) != id || strings.HasPrefix(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id + ".md", nil
}

func documentInfo(p string) DocumentInfo {
	return DocumentInfo{
		ID:    strings.TrimSuffix(p, ".md"),
		Path:  p,
		Title: contentutil.DisplayName(p),
	}
}

// Document is a handle on one file. Content is read from disk on each call
// so that external edits are picked up.
type Document struct {
	Info  DocumentInfo
	store *Store
}

// Content returns the content of the document, decrypting it when needed.
func (d *Document) Content() (string, error) {
	raw, err := d.store.root.ReadFile(d.Info.Path)
	if err != nil {
		return "", fmt.Errorf("failed to load document %s: %w", d.Info.Path, err)
	}

	if !IsAgeEncrypted(raw) {
		return string(raw), nil
	}

	content, err := d.store.crypt.Decrypt(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt document %s: %w", d.Info.Path, err)
	}
	return content, nil
}

// Save writes the document to disk. Documents whose front matter sets
// encrypted: true are written age encrypted. Leading whitespace is kept so
// line numbers stay stable between the editor and the file.
func (d *Document) Save(content string) error {
	content = contentutil.NormalizeLineEndings(content)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	if contentutil.HasEncryptedFrontmatter(content) {
		encrypted, err := d.store.crypt.Encrypt(content)
		if err != nil {
			return fmt.Errorf("failed to encrypt document %s: %w", d.Info.Path, err)
		}
		if err := d.store.root.WriteFile(d.Info.Path, encrypted, 0644); err != nil {
			return fmt.Errorf("failed to save document %s: %w", d.Info.Path, err)
		}
	} else if err := d.store.root.WriteString(d.Info.Path, content); err != nil {
		return fmt.Errorf("failed to save document %s: %w", d.Info.Path, err)
	}

	if stat, err := d.store.root.Stat(d.Info.Path); err == nil {
		d.Info.ModTime = stat.ModTime()
	}
	return nil
}

type Breadcrumb struct {
	Name   string
	IsLast bool
}

// Breadcrumbs returns the display names of the directories leading to the
// document followed by the document itself.
func (i DocumentInfo) Breadcrumbs() []Breadcrumb {
	parts := strings.Split(i.ID, "/")
	crumbs := make([]Breadcrumb, 0, len(parts))
	for idx, part := range parts {
		crumbs = append(crumbs, Breadcrumb{
			Name:   contentutil.TitleCase(strings.ReplaceAll(part, "-", " ")),
			IsLast: idx == len(parts)-1,
		})
	}
	return crumbs
}
