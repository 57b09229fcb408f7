// Package catalog loads the list of BC statutes the finder chooses from.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// ErrNoCatalog signals a data directory without an all_statutes file.
var ErrNoCatalog = errors.New("no statute catalog found")

var currencyPattern = regexp.MustCompile(`all_statutes_([0-9]{8})`)

// Statute is one row of the catalog file.
type Statute struct {
	Name        string `json:"name"`
	Citation    string `json:"citation"`
	DirectoryID string `json:"directory_id"`
	ActID       string `json:"act_id"`
	Repealed    bool   `json:"repealed"`
	URL         string `json:"url"`
}

// Options controls which rows are kept.
type Options struct {
	IncludeRepealed bool
}

// Catalog is an immutable, loaded statute list.
type Catalog struct {
	path     string
	statutes []Statute
	byName   map[string][]int
	currency time.Time
}

// LoadLatest reads the newest all_statutes JSON file in dir.
// File names sort by their embedded timestamp.
func LoadLatest(dir string, opts Options) (*Catalog, error) {
	path, err := latestFile(dir)
	if err != nil {
		return nil, err
	}
	return Load(path, opts)
}

// Load reads one catalog file.
func Load(path string, opts Options) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var rows []Statute
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", filepath.Base(path), err)
	}
	return newCatalog(path, rows, opts), nil
}

// New builds a catalog from rows already in memory.
func New(rows []Statute, opts Options) *Catalog {
	return newCatalog("", rows, opts)
}

func newCatalog(path string, rows []Statute, opts Options) *Catalog {
	c := &Catalog{path: path, byName: make(map[string][]int)}
	for _, r := range rows {
		if r.Repealed && !opts.IncludeRepealed {
			continue
		}
		c.byName[r.Name] = append(c.byName[r.Name], len(c.statutes))
		c.statutes = append(c.statutes, r)
	}
	if m := currencyPattern.FindStringSubmatch(filepath.Base(path)); m != nil {
		if t, err := time.Parse("20060102", m[1]); err == nil {
			c.currency = t
		}
	}
	return c
}

func latestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read catalog dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, ".json") || !strings.Contains(n, "all_statutes") {
			continue
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%s: %w", dir, ErrNoCatalog)
	}
	slices.Sort(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// Path returns the file the catalog was read from.
func (c *Catalog) Path() string { return c.path }

// Len returns the number of kept rows.
func (c *Catalog) Len() int { return len(c.statutes) }

// CurrencyDate is the date embedded in the file name.
func (c *Catalog) CurrencyDate() (time.Time, bool) {
	return c.currency, !c.currency.IsZero()
}

// Statutes returns a copy of the kept rows.
func (c *Catalog) Statutes() []Statute {
	return slices.Clone(c.statutes)
}

// Names lists distinct statute names in file order, without blanks.
func (c *Catalog) Names() []string {
	seen := make(map[string]struct{}, len(c.statutes))
	out := make([]string, 0, len(c.statutes))
	for _, s := range c.statutes {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		if _, ok := seen[s.Name]; ok {
			continue
		}
		seen[s.Name] = struct{}{}
		out = append(out, s.Name)
	}
	return out
}

// Lookup returns every row with the given name.
func (c *Catalog) Lookup(name string) ([]Statute, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	out := make([]Statute, len(idx))
	for i, j := range idx {
		out[i] = c.statutes[j]
	}
	return out, true
}

// Citations lists the citations for a name. Some names carry several.
func (c *Catalog) Citations(name string) ([]string, bool) {
	rows, ok := c.Lookup(name)
	if !ok {
		return nil, false
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Citation
	}
	return out, true
}

// Find returns the row for a name and citation.
func (c *Catalog) Find(name, citation string) (Statute, bool) {
	rows, _ := c.Lookup(name)
	for _, r := range rows {
		if r.Citation == citation {
			return r, true
		}
	}
	return Statute{}, false
}
