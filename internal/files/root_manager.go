package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// RootManager provides safe filesystem operations within a specific directory using os.Root
type RootManager struct {
	path string
}

// NewRootManager creates a new RootManager for the given directory path
func NewRootManager(path string) (*RootManager, error) {
	// Ensure directory exists
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	// Test that we can open the directory as a root
	testRoot, err := os.OpenRoot(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory as root %s: %w", path, err)
	}
	_ = testRoot.Close()

	return &RootManager{path: path}, nil
}

// Path returns the directory the manager is confined to.
func (rm *RootManager) Path() string {
	return rm.path
}

// withRoot executes a function with a safely opened os.Root
func (rm *RootManager) withRoot(fn func(*os.Root) error) error {
	root, err := os.OpenRoot(rm.path)
	if err != nil {
		return fmt.Errorf("failed to open root: %w", err)
	}
	defer func(root *os.Root) {
		_ = root.Close()
	}(root)

	return fn(root)
}

// ReadFile reads the contents of a file inside the root
func (rm *RootManager) ReadFile(filename string) ([]byte, error) {
	var content []byte
	err := rm.withRoot(func(root *os.Root) error {
		f, err := root.Open(filename)
		if err != nil {
			return err
		}
		defer func(f *os.File) {
			_ = f.Close()
		}(f)

		content, err = io.ReadAll(f)
		return err
	})
	return content, err
}

// WriteFile writes content to a file inside the root, creating parent
// directories as needed.
func (rm *RootManager) WriteFile(filename string, content []byte, perm os.FileMode) error {
	return rm.withRoot(func(root *os.Root) error {
		if err := mkdirAll(root, path.Dir(filepath.ToSlash(filename))); err != nil {
			return err
		}

		f, err := root.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
		if err != nil {
			return err
		}
		if _, err := f.Write(content); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	})
}

// mkdirAll creates dir and its parents one level at a time so every step
// stays confined to the root.
func mkdirAll(root *os.Root, dir string) error {
	if dir == "." || dir == "" {
		return nil
	}

	current := ""
	for _, part := range strings.Split(dir, "/") {
		current = path.Join(current, part)
		if err := root.Mkdir(current, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

// WriteString writes a string to a file
func (rm *RootManager) WriteString(filename string, content string) error {
	return rm.WriteFile(filename, []byte(content), 0644)
}

// FileExists checks if a file exists using Root.Stat
func (rm *RootManager) FileExists(filename string) bool {
	exists := false
	_ = rm.withRoot(func(root *os.Root) error {
		_, err := root.Stat(filename)
		exists = err == nil
		return nil
	})
	return exists
}

// Stat returns file info using Root.Stat
func (rm *RootManager) Stat(filename string) (os.FileInfo, error) {
	var info os.FileInfo
	err := rm.withRoot(func(root *os.Root) error {
		var err error
		info, err = root.Stat(filename)
		return err
	})
	return info, err
}

// WalkDir walks the directory tree using Root.FS()
func (rm *RootManager) WalkDir(root string, fn fs.WalkDirFunc) error {
	return rm.withRoot(func(osRoot *os.Root) error {
		fsys := osRoot.FS()
		return fs.WalkDir(fsys, root, fn)
	})
}

// ScanResult holds information about a scanned file or directory
type ScanResult struct {
	Path         string
	Name         string
	IsDir        bool
	RelativePath string
}

// Scan scans the directory tree starting from rootDir, applying an optional filter function
func (rm *RootManager) Scan(rootDir string, filter func(string, fs.DirEntry) bool) ([]ScanResult, error) {
	var results []ScanResult

	err := rm.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Continue walking despite errors
		}

		if filter != nil && !filter(path, d) {
			return nil
		}

		relativePath := path
		if rootDir != "." && rootDir != "" {
			relativePath = strings.TrimPrefix(path, rootDir+"/")
		}

		results = append(results, ScanResult{
			Path:         path,
			Name:         d.Name(),
			IsDir:        d.IsDir(),
			RelativePath: relativePath,
		})

		return nil
	})

	return results, err
}
