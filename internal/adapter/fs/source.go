package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

// Source resolves the department document below a root directory.
type Source struct {
	root     string
	excludes []string
}

func NewSource(root string, excludes ...string) *Source {
	if len(excludes) == 0 {
		excludes = []string{".git/**", ".deptqa/**", "node_modules/**"}
	}
	return &Source{
		root:     root,
		excludes: excludes,
	}
}

// Resolve returns the single file matching pattern. The system answers from
// one document, so zero or several matches are configuration errors.
func (s *Source) Resolve(pattern string) (string, error) {
	if filepath.IsAbs(pattern) && !hasMeta(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return "", fmt.Errorf("%w: document %s: %v", domain.ErrInvalidConfig, pattern, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: document %s is a directory", domain.ErrInvalidConfig, pattern)
		}
		return pattern, nil
	}

	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	pattern = filepath.ToSlash(filepath.Clean(pattern))

	var matches []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && s.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if s.shouldExclude(relPath) {
			return nil
		}
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no document matches %q under %s", domain.ErrInvalidConfig, pattern, root)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %d documents match %q, exactly one is required", domain.ErrInvalidConfig, len(matches), pattern)
	}
}

// Read loads the document and its checksum.
func (s *Source) Read(path string) (port.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return port.Document{}, err
	}

	id := filepath.Base(path)
	if root, err := filepath.Abs(s.root); err == nil {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			id = filepath.ToSlash(rel)
		}
	}

	sum := sha256.Sum256(data)
	return port.Document{
		ID:       id,
		Path:     path,
		Text:     string(data),
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

func (s *Source) shouldExclude(path string) bool {
	for _, pattern := range s.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
