// Package embtable persists embedding tables as CSV files, one per corpus.
package embtable

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

var header = []string{"text", "embedding"}

// Store reads and writes tables under a directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a file-backed table store.
func New(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// FileName maps a corpus id to its file name. Characters outside [A-Za-z0-9._-] become '_'.
func FileName(corpusID string) string {
	var b strings.Builder
	for _, r := range corpusID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String() + ".csv"
}

func (s *Store) path(corpusID string) string {
	return filepath.Join(s.dir, FileName(corpusID))
}

// Load reads the table for corpusID. A missing file is reported as ok=false.
func (s *Store) Load(_ context.Context, corpusID string) (domain.EmbeddingTable, bool, error) {
	f, err := os.Open(s.path(corpusID))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.EmbeddingTable{}, false, nil
	}
	if err != nil {
		return domain.EmbeddingTable{}, false, fmt.Errorf("open table %s: %w", corpusID, err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return domain.EmbeddingTable{}, false, fmt.Errorf("read table %s: %w", corpusID, err)
	}
	return domain.EmbeddingTable{CorpusID: corpusID, Rows: rows}, true, nil
}

// Save writes the table to a temp file in the same directory and renames it
// into place, so readers never see a partial table.
func (s *Store) Save(_ context.Context, table domain.EmbeddingTable) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create table dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+FileName(table.CorpusID)+"-*")
	if err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if err := writeRows(tmp, table.Rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write table %s: %w", table.CorpusID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp table: %w", err)
	}
	if err := os.Rename(tmpName, s.path(table.CorpusID)); err != nil {
		return fmt.Errorf("publish table %s: %w", table.CorpusID, err)
	}

	s.logger.Info("Embedding table saved",
		zap.String("corpus", table.CorpusID),
		zap.Int("rows", len(table.Rows)),
	)
	return nil
}

func readRows(r io.Reader) ([]domain.EmbeddingRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if head[0] != header[0] || head[1] != header[1] {
		return nil, fmt.Errorf("unexpected header %v", head)
	}

	var rows []domain.EmbeddingRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err //nolint:wrapcheck // csv errors carry line numbers
		}
		vec, err := parseVector(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, domain.EmbeddingRow{Text: rec[0], Vector: vec})
	}
}

func writeRows(w io.Writer, rows []domain.EmbeddingRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err //nolint:wrapcheck // wrapped by caller
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Text, formatVector(r.Vector)}); err != nil {
			return err //nolint:wrapcheck // wrapped by caller
		}
	}
	cw.Flush()
	return cw.Error() //nolint:wrapcheck // wrapped by caller
}

// formatVector renders "[f1, f2, ...]".
func formatVector(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("embedding %q is not a bracketed list", truncate(s, 32))
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float32{}, nil
	}
	parts := strings.Split(body, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("embedding component %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
