package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// LoadDocuments reads every supported file directly under dir in name order
// and returns the extracted documents:
//
//   - .txt and .md files become one document each (trimmed, skipped if empty);
//   - .csv files contribute one document per non-empty cell of every text
//     column, column by column.
//
// A file that cannot be read or parsed is logged and skipped. A missing dir
// yields no documents and no error.
func LoadDocuments(dir string, log *slog.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("ingestion: role directory does not exist", slog.String("dir", dir))
			return nil, nil
		}
		return nil, fmt.Errorf("ingestion: read %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())

		var got []string
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			got, err = readText(path)
		case ".csv":
			got, err = readCSV(path)
		default:
			continue
		}
		if err != nil {
			log.Warn("ingestion: skipping unreadable file", slog.String("path", path), slog.Any("error", err))
			continue
		}
		docs = append(docs, got...)
	}
	return docs, nil
}

// readText returns the whole file as a single trimmed document.
func readText(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []string{text}, nil
}

// readCSV returns the non-empty cells of every text column. A column counts
// as text when at least one of its non-empty cells is not a number; purely
// numeric columns are skipped.
func readCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("header: %w", err)
	}

	columns := make([][]string, len(header))
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := range columns {
			cell := ""
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			columns[i] = append(columns[i], cell)
		}
	}

	var docs []string
	for _, col := range columns {
		if !isTextColumn(col) {
			continue
		}
		for _, cell := range col {
			if cell != "" {
				docs = append(docs, cell)
			}
		}
	}
	return docs, nil
}

// isTextColumn reports whether any non-empty cell fails to parse as a number.
func isTextColumn(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			continue
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			return true
		}
	}
	return false
}
