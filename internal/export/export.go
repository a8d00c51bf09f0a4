// Package export writes finalized PRDs to disk as Markdown, JSON or YAML.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/PRDWing/internal/prd"
)

// Format is an export format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Content types accepted by WriteFile.
const (
	ContentTypeMarkdown = "text/markdown"
	ContentTypeJSON     = "application/json"
	ContentTypeYAML     = "application/x-yaml"
)

var ErrUnsupported = errors.New("unsupported export format")

var extensions = map[string]string{
	ContentTypeMarkdown: ".md",
	ContentTypeJSON:     ".json",
	ContentTypeYAML:     ".yaml",
}

// ParseFormat accepts the usual spellings of each format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return ContentTypeJSON
	case FormatYAML:
		return ContentTypeYAML
	default:
		return ContentTypeMarkdown
	}
}

// Document is a finalized PRD ready for export.
type Document struct {
	Title                string     `json:"title" yaml:"title"`
	PRD                  prd.Record `json:"prd" yaml:"prd"`
	Markdown             string     `json:"-" yaml:"-"`
	GettingStartedPrompt string     `json:"gettingStartedPrompt" yaml:"gettingStartedPrompt"`
}

// Encode serializes doc in format f. Markdown falls back to rendering the
// record when the document carries none.
func Encode(doc Document, f Format) (string, error) {
	switch f {
	case FormatMarkdown:
		if doc.Markdown != "" {
			return doc.Markdown, nil
		}
		return prd.RenderMarkdown(doc.PRD, doc.Title), nil
	case FormatJSON:
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode json: %w", err)
		}
		return string(b) + "\n", nil
	case FormatYAML:
		b, err := yaml.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		return string(b), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, f)
}

// Writer writes exports through an afero filesystem.
type Writer struct {
	fs afero.Fs
}

// NewWriter returns a Writer on fs, or on the OS filesystem when fs is nil.
func NewWriter(fs afero.Fs) *Writer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Writer{fs: fs}
}

// WriteFile writes content to dir/filename and returns the path. The
// extension for contentType is appended when filename has none. The file is
// written to a temporary name first and renamed into place.
func (w *Writer) WriteFile(dir, filename, contentType, content string) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: content type %q", ErrUnsupported, contentType)
	}
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	if filepath.Ext(filename) == "" {
		filename += ext
	}

	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, filename)
	tmp := path + ".tmp"
	if err := afero.WriteFile(w.fs, tmp, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.fs.Rename(tmp, path); err != nil {
		_ = w.fs.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Export encodes doc and writes it into dir, named after the title.
func (w *Writer) Export(dir string, doc Document, f Format) (string, error) {
	content, err := Encode(doc, f)
	if err != nil {
		return "", err
	}
	return w.WriteFile(dir, Filename(doc.Title, f), f.ContentType(), content)
}

// Filename derives an export file name from a project title.
func Filename(title string, f Format) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		slug = "project"
	}
	return slug + "-prd" + extensions[f.ContentType()]
}
