package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// Locator maps a statute name and citation to the id of its act file.
type Locator func(name, citation string) (actID string, ok bool)

// Library serves section listings from a directory of <act_id>.xml files.
// Parsed listings are cached for the life of the library.
type Library struct {
	dir    string
	locate Locator

	mu    sync.Mutex
	cache map[string]domain.ActContents
}

// NewLibrary creates a library over dir.
func NewLibrary(dir string, locate Locator) *Library {
	return &Library{dir: dir, locate: locate, cache: make(map[string]domain.ActContents)}
}

// Contents returns the section lines of the act behind name and citation.
// Parts, divisions and spent ranges are dropped.
func (l *Library) Contents(_ context.Context, name, citation string) (domain.ActContents, error) {
	id, ok := l.locate(name, citation)
	if !ok || id == "" || filepath.Base(id) != id {
		return domain.ActContents{}, fmt.Errorf("%s, %s: %w", name, citation, domain.ErrActNotFound)
	}

	l.mu.Lock()
	c, hit := l.cache[id]
	l.mu.Unlock()
	if hit {
		return clone(c), nil
	}

	f, err := os.Open(filepath.Join(l.dir, id+".xml"))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ActContents{}, fmt.Errorf("%s: %w", id, domain.ErrActNotFound)
	}
	if err != nil {
		return domain.ActContents{}, fmt.Errorf("open act %s: %w", id, err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Parse(f)
	if err != nil {
		return domain.ActContents{}, fmt.Errorf("parse act %s: %w", id, err)
	}
	c = domain.ActContents{
		Title:    doc.Title(),
		CorpusID: "act_" + id,
		Sections: domain.SectionsOnly(doc.Contents()),
	}
	if c.Title == "" {
		c.Title = name
	}

	l.mu.Lock()
	l.cache[id] = c
	l.mu.Unlock()
	return clone(c), nil
}

func clone(c domain.ActContents) domain.ActContents {
	c.Sections = slices.Clone(c.Sections)
	return c
}
