package export

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/PRDWing/internal/prd"
)

func sampleDoc() Document {
	rec := prd.Normalize(map[string]any{
		"summary":  map[string]any{"elevatorPitch": "Todo lists for teams", "summary": "A shared todo app."},
		"features": []any{map[string]any{"name": "Lists", "priority": "high"}},
	})
	return Document{
		Title:                "Acme Todo",
		PRD:                  rec,
		Markdown:             prd.RenderMarkdown(rec, "Acme Todo"),
		GettingStartedPrompt: "Build Acme Todo.",
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", FormatMarkdown, false},
		{"Markdown", FormatMarkdown, false},
		{"json", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "acme-todo-prd.md", Filename("Acme Todo!", FormatMarkdown))
	assert.Equal(t, "café-app-prd.json", Filename("  Café / App ", FormatJSON))
	assert.Equal(t, "project-prd.yaml", Filename("???", FormatYAML))
}

func TestWriter_Export(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs)
	doc := sampleDoc()

	t.Run("markdown", func(t *testing.T) {
		path, err := w.Export("/out", doc, FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, "/out/acme-todo-prd.md", path)

		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		assert.Equal(t, doc.Markdown, string(data))

		exists, err := afero.Exists(fs, path+".tmp")
		require.NoError(t, err)
		assert.False(t, exists, "temporary file is renamed away")
	})

	t.Run("json", func(t *testing.T) {
		path, err := w.Export("/out", doc, FormatJSON)
		require.NoError(t, err)

		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "Acme Todo", got["title"])
		assert.Equal(t, "Build Acme Todo.", got["gettingStartedPrompt"])
		assert.NotContains(t, got, "Markdown")
		assert.Equal(t, "Todo lists for teams", got["prd"].(map[string]any)["summary"].(map[string]any)["elevatorPitch"])
	})

	t.Run("yaml", func(t *testing.T) {
		path, err := w.Export("/out", doc, FormatYAML)
		require.NoError(t, err)

		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		var got Document
		require.NoError(t, yaml.Unmarshal(data, &got))
		assert.Equal(t, doc.PRD.Features, got.PRD.Features)
		assert.Equal(t, prd.PriorityHigh, got.PRD.Features[0].Priority)
	})
}

func TestEncode_RendersMarkdownWhenMissing(t *testing.T) {
	doc := sampleDoc()
	doc.Markdown = ""
	out, err := Encode(doc, FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, prd.RenderMarkdown(doc.PRD, doc.Title), out)
}

func TestWriter_WriteFile(t *testing.T) {
	w := NewWriter(afero.NewMemMapFs())

	path, err := w.WriteFile("/docs", "notes", ContentTypeMarkdown, "# Notes")
	require.NoError(t, err)
	assert.Equal(t, "/docs/notes.md", path)

	path, err = w.WriteFile("/docs", "data.txt", ContentTypeJSON, "{}")
	require.NoError(t, err)
	assert.Equal(t, "/docs/data.txt", path, "an explicit extension is kept")

	_, err = w.WriteFile("/docs", "x", "application/pdf", "")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = w.WriteFile("/docs", "../escape.md", ContentTypeMarkdown, "")
	assert.Error(t, err)
}
