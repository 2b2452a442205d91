// -----------------------------------------------------------------------
// Markdown Generator - Renders processed documents to markdown
// -----------------------------------------------------------------------

package markdown

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/scriptor/internal/interfaces"
	"github.com/ternarybob/scriptor/internal/models"
)

// assetsSubdir is the directory name image references point at, relative
// to the markdown file.
const assetsSubdir = "assets"

// Generator renders processed documents to markdown. Output is
// deterministic: identical inputs produce byte-identical markdown.
type Generator struct {
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.MarkdownRenderer = (*Generator)(nil)

// NewGenerator creates a new markdown generator.
func NewGenerator(logger arbor.ILogger) *Generator {
	return &Generator{
		logger: logger,
	}
}

// frontMatter mirrors DocumentMetadata with yaml tags so field order in the
// rendered front matter follows struct order, not map iteration.
type frontMatter struct {
	Title       string `yaml:"title,omitempty"`
	Author      string `yaml:"author,omitempty"`
	Subject     string `yaml:"subject,omitempty"`
	Pages       int    `yaml:"pages,omitempty"`
	Model       string `yaml:"model,omitempty"`
	ConvertedAt string `yaml:"converted,omitempty"`
}

// Generate renders the document to markdown. Image payloads are decoded and
// written under assetsDir; an empty assetsDir keeps asset bytes in memory
// only. Every page renders a heading, empty pages included, so the page
// count stays verifiable from the output alone.
func (g *Generator) Generate(meta models.DocumentMetadata, doc *models.ProcessedDocument, assetsDir string) (*models.MarkdownArtifact, error) {
	if doc == nil {
		return nil, models.NewPipelineError(models.ErrRenderFailure, "markdown.generate",
			fmt.Errorf("processed document is nil"))
	}

	artifact := &models.MarkdownArtifact{
		Warnings: append([]models.Warning(nil), doc.Warnings...),
	}

	var buf bytes.Buffer
	if err := g.writeFrontMatter(&buf, meta); err != nil {
		return nil, models.NewPipelineError(models.ErrRenderFailure, "markdown.generate", err)
	}

	usedNames := make(map[string]bool)
	for _, page := range doc.Pages {
		fmt.Fprintf(&buf, "## Page %d\n", page.Number)
		for _, block := range page.Blocks {
			switch block.Type {
			case models.BlockTypeText:
				buf.WriteString("\n")
				buf.WriteString(strings.TrimRight(block.Text, "\n"))
				buf.WriteString("\n")

			case models.BlockTypeTable:
				if block.Table == nil {
					continue
				}
				buf.WriteString("\n")
				writeTable(&buf, block.Table)

			case models.BlockTypeImage:
				if block.Image == nil {
					continue
				}
				asset, err := g.extractAsset(page.Number, block.Image, assetsDir, usedNames)
				if err != nil {
					artifact.Warnings = append(artifact.Warnings, models.Warning{
						Code:    models.WarnBadImagePayload,
						Page:    page.Number,
						Message: fmt.Sprintf("image %q skipped: %v", block.Image.ID, err),
					})
					continue
				}
				artifact.Assets = append(artifact.Assets, *asset)
				fmt.Fprintf(&buf, "\n![%s](%s)\n", block.Image.Alt, asset.RelPath)
			}
		}
		buf.WriteString("\n")
	}

	artifact.Markdown = buf.String()

	g.logger.Debug().
		Int("pages", len(doc.Pages)).
		Int("assets", len(artifact.Assets)).
		Int("bytes", len(artifact.Markdown)).
		Msg("Markdown generated")

	return artifact, nil
}

// writeFrontMatter renders the metadata fields that are set as a YAML front
// matter block. No fields set means no front matter at all.
func (g *Generator) writeFrontMatter(buf *bytes.Buffer, meta models.DocumentMetadata) error {
	fm := frontMatter{
		Title:       meta.Title,
		Author:      meta.Author,
		Subject:     meta.Subject,
		Pages:       meta.PageCount,
		Model:       meta.Model,
		ConvertedAt: meta.ConvertedAt,
	}
	if fm == (frontMatter{}) {
		return nil
	}

	encoded, err := yaml.Marshal(fm)
	if err != nil {
		return fmt.Errorf("failed to encode front matter: %w", err)
	}

	buf.WriteString("---\n")
	buf.Write(encoded)
	buf.WriteString("---\n\n")
	return nil
}

// writeTable renders tabular data as a markdown table in the exact row and
// column order given. The first body row serves as the header when no
// explicit headers exist.
func writeTable(buf *bytes.Buffer, table *models.TableData) {
	headers := table.Headers
	rows := table.Rows
	if len(headers) == 0 {
		if len(rows) == 0 {
			return
		}
		headers = rows[0]
		rows = rows[1:]
	}

	writeTableRow(buf, headers)

	buf.WriteString("|")
	for range headers {
		buf.WriteString(" --- |")
	}
	buf.WriteString("\n")

	for _, row := range rows {
		writeTableRow(buf, row)
	}
}

func writeTableRow(buf *bytes.Buffer, cells []string) {
	buf.WriteString("|")
	for _, cell := range cells {
		buf.WriteString(" ")
		buf.WriteString(escapeCell(cell))
		buf.WriteString(" |")
	}
	buf.WriteString("\n")
}

// escapeCell makes a cell value safe inside a markdown table row.
func escapeCell(cell string) string {
	cell = strings.ReplaceAll(cell, "|", "\\|")
	cell = strings.ReplaceAll(cell, "\n", " ")
	return cell
}

// extractAsset decodes an image payload into an Asset, writing it under
// assetsDir when one is provided. Names are derived from the page number
// and image ID and kept unique within one conversion.
func (g *Generator) extractAsset(pageNum int, image *models.ImageData, assetsDir string, usedNames map[string]bool) (*models.Asset, error) {
	data, err := decodeImagePayload(image.Base64)
	if err != nil {
		return nil, err
	}

	contentType := mimetype.Detect(data)
	name := assetName(pageNum, image.ID, contentType.Extension(), usedNames)

	asset := &models.Asset{
		Name:        name,
		RelPath:     assetsSubdir + "/" + name,
		ContentType: contentType.String(),
		Size:        int64(len(data)),
		Data:        data,
	}

	if assetsDir != "" {
		full := filepath.Join(assetsDir, name)
		if err := os.WriteFile(full, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write asset: %w", err)
		}
		asset.Path = full
	}

	return asset, nil
}

// decodeImagePayload decodes a base64 image payload, tolerating an optional
// data URL prefix.
func decodeImagePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("image payload is empty")
	}
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		payload = payload[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image payload is empty")
	}
	return data, nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// assetName builds a filesystem-safe, collision-free asset filename. The
// image ID supplies the stem; its extension is replaced by one matching the
// decoded content type.
func assetName(pageNum int, id, ext string, usedNames map[string]bool) string {
	stem := strings.TrimSuffix(id, filepath.Ext(id))
	stem = unsafeNameChars.ReplaceAllString(stem, "-")
	stem = strings.Trim(stem, "-.")
	if stem == "" {
		stem = "image"
	}
	if ext == "" {
		ext = ".bin"
	}

	name := fmt.Sprintf("page-%d-%s%s", pageNum, stem, ext)
	for n := 2; usedNames[name]; n++ {
		name = fmt.Sprintf("page-%d-%s-%d%s", pageNum, stem, n, ext)
	}
	usedNames[name] = true
	return name
}

// RenderPreviewHTML renders markdown to HTML for preview surfaces. Table
// syntax is enabled so rendered tables survive the round trip.
func (g *Generator) RenderPreviewHTML(markdownText string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	)

	var out bytes.Buffer
	if err := md.Convert([]byte(markdownText), &out); err != nil {
		return "", fmt.Errorf("failed to render preview HTML: %w", err)
	}
	return out.String(), nil
}
