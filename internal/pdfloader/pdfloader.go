// Package pdfloader extracts plain text from the PDFs of a folder.
package pdfloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

// Loader reads every PDF in a folder. Unreadable files are kept with a
// placeholder text so the failure surfaces in the index.
type Loader struct {
	logger *zap.Logger
}

var _ domain.DocumentLoader = (*Loader)(nil)

// New creates a loader. A nil logger disables logging.
func New(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadFolder returns one document per *.pdf file directly inside folder,
// sorted by file name. A missing folder yields no documents.
func (l *Loader) LoadFolder(folder string) ([]domain.Document, error) {
	folder = expandHome(folder)
	entries, err := os.ReadDir(folder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("pdf folder does not exist", zap.String("folder", folder))
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]domain.Document, 0, len(names))
	for _, name := range names {
		path := filepath.Join(folder, name)
		text, err := ReadPDF(path)
		if err != nil {
			l.logger.Warn("pdf read failed", zap.String("source", name), zap.Error(err))
			text = Placeholder(err)
		}
		docs = append(docs, domain.Document{Source: name, Path: path, Text: text})
	}
	return docs, nil
}

// Placeholder is the text recorded for a PDF that could not be read.
func Placeholder(err error) string {
	return fmt.Sprintf("[PDF read error: %v]", err)
}

// ReadPDF returns the plain text of every page joined with newlines.
func ReadPDF(path string) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse %s: %v", filepath.Base(path), r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
