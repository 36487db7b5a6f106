package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/slatemate/social-scraper/internal/domain"
)

// Column order for the metadata table. API-only columns join the header only
// when a batch actually carries them, so a feed-only table stays narrow.
var (
	baseColumns = []string{
		"post_id", "platform", "post_text", "hashtags", "timestamp",
		"image_url", "likes", "comments", "author", "scraped_at",
	}
	apiColumns = []string{"view_count", "duration", "channel_id", "url"}
)

// CSVSink appends normalized records to a tabular file. Appends never
// deduplicate across runs; the table is append-only history.
type CSVSink struct {
	Path string
	Log  *slog.Logger
}

// Append writes records to the table and reports the combined row count.
// When the existing header already covers the batch the rows are appended in
// place; a header change (new optional columns) rewrites the table with the
// column union, leaving missing cells blank on either side.
func (s *CSVSink) Append(records []domain.PostRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]map[string]string, len(records))
	for i, r := range records {
		rows[i] = recordRow(r)
	}
	newCols := columnsFor(rows)

	header, existing, err := s.readExisting()
	if err != nil {
		return 0, err
	}
	if header == nil {
		if err := s.writeAll(newCols, rows); err != nil {
			return 0, err
		}
		s.Log.Info("created metadata table", "path", s.Path, "rows", len(rows))
		return len(rows), nil
	}

	union := unionColumns(header, newCols)
	total := len(existing) + len(rows)

	if len(union) == len(header) {
		if err := s.appendRows(header, rows); err != nil {
			return 0, err
		}
		s.Log.Info("appended to metadata table", "path", s.Path, "new", len(rows), "total", total)
		return total, nil
	}

	// Header grew: rewrite the whole table under the union schema.
	if err := s.writeAll(union, append(existing, rows...)); err != nil {
		return 0, err
	}
	s.Log.Info("rewrote metadata table with widened schema", "path", s.Path, "new", len(rows), "total", total)
	return total, nil
}

// readExisting loads the current table. A missing file returns a nil header.
func (s *CSVSink) readExisting() ([]string, []map[string]string, error) {
	f, err := os.Open(s.Path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}

	header := all[0]
	rows := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func (s *CSVSink) writeAll(cols []string, rows []map[string]string) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	if err := w.Write(cols); err != nil {
		f.Close()
		return err
	}
	for _, row := range rows {
		if err := w.Write(cells(cols, row)); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

func (s *CSVSink) appendRows(cols []string, rows []map[string]string) error {
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	for _, row := range rows {
		if err := w.Write(cells(cols, row)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

func cells(cols []string, row map[string]string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = row[c]
	}
	return out
}

func recordRow(r domain.PostRecord) map[string]string {
	return map[string]string{
		"post_id":    r.PostID,
		"platform":   string(r.Platform),
		"post_text":  r.PostText,
		"hashtags":   strings.Join(r.Hashtags, ","),
		"timestamp":  r.Timestamp,
		"image_url":  r.ImageURL,
		"likes":      r.Likes,
		"comments":   r.Comments,
		"author":     r.Author,
		"scraped_at": r.ScrapedAt,
		"view_count": r.ViewCount,
		"duration":   r.Duration,
		"channel_id": r.ChannelID,
		"url":        r.URL,
	}
}

// columnsFor builds the header for a batch: the base schema plus whichever
// optional API columns any row actually populates.
func columnsFor(rows []map[string]string) []string {
	cols := append([]string(nil), baseColumns...)
	for _, opt := range apiColumns {
		for _, row := range rows {
			if row[opt] != "" {
				cols = append(cols, opt)
				break
			}
		}
	}
	return cols
}

func unionColumns(existing, incoming []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		have[c] = struct{}{}
	}
	union := append([]string(nil), existing...)
	for _, c := range incoming {
		if _, ok := have[c]; !ok {
			union = append(union, c)
		}
	}
	return union
}

// stripBOM skips a UTF-8 byte-order mark, which spreadsheet exports love to
// prepend.
func stripBOM(f *os.File) *bufio.Reader {
	br := bufio.NewReader(f)
	if b, _ := br.Peek(3); len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
