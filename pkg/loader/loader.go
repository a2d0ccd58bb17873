package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"

	"github.com/docq-ai/docq/internal/models"
)

// LoaderConfig controls file validation limits.
type LoaderConfig struct {
	MaxFileSizeMB int
}

// Loader reads PDF, TXT, Markdown, DOCX and HTML files into documents.
type Loader struct {
	config      LoaderConfig
	maxFileSize int64
}

var supportedFormats = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".docx": true,
	".html": true,
	".htm":  true,
}

func NewWithConfig(config LoaderConfig) *Loader {
	if config.MaxFileSizeMB == 0 {
		config.MaxFileSizeMB = 50
	}

	return &Loader{
		config:      config,
		maxFileSize: int64(config.MaxFileSizeMB) * 1024 * 1024,
	}
}

func New() *Loader {
	return NewWithConfig(LoaderConfig{})
}

// SupportedExtensions lists the file extensions Load accepts, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load reads a single file. PDFs yield one document per page with
// extractable text; every other format yields exactly one document.
func (l *Loader) Load(path string) ([]models.Document, error) {
	if err := l.validate(path); err != nil {
		return nil, err
	}

	var (
		docs []models.Document
		err  error
	)

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		docs, err = l.loadPDF(path)
	case ".txt", ".md":
		docs, err = l.loadText(path)
	case ".docx":
		docs, err = l.loadDocx(path)
	case ".html", ".htm":
		docs, err = l.loadHTML(path)
	default:
		return nil, fmt.Errorf("unsupported file format %q (supported: %s)",
			ext, strings.Join(SupportedExtensions(), ", "))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no text extracted from %s", filepath.Base(path))
	}

	return l.enrichMetadata(docs, path), nil
}

// LoadDirectory loads every supported file under dir, skipping files that
// fail to load instead of aborting the batch.
func (l *Loader) LoadDirectory(dir string) ([]models.Document, []models.SkippedFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var (
		docs    []models.Document
		skipped []models.SkippedFile
		found   int
	)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !supportedFormats[ext] {
			continue
		}
		found++

		path := filepath.Join(dir, entry.Name())
		loaded, err := l.Load(path)
		if err != nil {
			skipped = append(skipped, models.SkippedFile{Path: path, Reason: err.Error()})
			continue
		}
		docs = append(docs, loaded...)
	}

	if found == 0 {
		return nil, nil, fmt.Errorf("no supported files in %s (supported: %s)",
			dir, strings.Join(SupportedExtensions(), ", "))
	}

	return docs, skipped, nil
}

func (l *Loader) validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
		return err
	}

	if info.IsDir() || !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedFormats[ext] {
		return fmt.Errorf("unsupported file format %q (supported: %s)",
			ext, strings.Join(SupportedExtensions(), ", "))
	}

	if info.Size() == 0 {
		return fmt.Errorf("empty file: %s", filepath.Base(path))
	}

	if info.Size() > l.maxFileSize {
		sizeMB := float64(info.Size()) / (1024 * 1024)
		return fmt.Errorf("file too large: %.2fMB (max: %dMB)", sizeMB, l.config.MaxFileSizeMB)
	}

	return nil
}

// loadText reads .txt and .md files. Content is expected to be UTF-8;
// files in legacy single-byte encodings fall back to Windows-1252, then
// Latin-1, mirroring the usual encoding ladder for plain-text corpora.
func (l *Loader) loadText(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := string(data)
	if !utf8.Valid(data) {
		if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
			text = string(decoded)
		} else if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
			text = string(decoded)
		} else {
			return nil, fmt.Errorf("could not decode %s with supported encodings", filepath.Base(path))
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	return []models.Document{{Content: text}}, nil
}

func (l *Loader) enrichMetadata(docs []models.Document, path string) []models.Document {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))
	loadedAt := time.Now().Format(time.RFC3339)

	for i := range docs {
		docs[i].ID = uuid.NewString()
		docs[i].SourceFile = name
		docs[i].Path = abs
		docs[i].FileType = ext

		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]interface{})
		}
		docs[i].Metadata["source_file"] = name
		docs[i].Metadata["file_path"] = abs
		docs[i].Metadata["file_type"] = ext
		docs[i].Metadata["loaded_at"] = loadedAt
		if docs[i].Page > 0 {
			docs[i].Metadata["page"] = docs[i].Page
		}
	}

	return docs
}
