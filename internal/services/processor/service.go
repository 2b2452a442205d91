// -----------------------------------------------------------------------
// Result Processor - Normalizes raw recognition results
// -----------------------------------------------------------------------

package processor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriptor/internal/interfaces"
	"github.com/ternarybob/scriptor/internal/models"
)

// Service normalizes raw recognition results into processed documents.
// Damaged sub-elements degrade or drop with warnings; only a result with no
// usable pages is rejected.
type Service struct {
	transform interfaces.TransformService
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ResultProcessor = (*Service)(nil)

// NewService creates a new result processor.
func NewService(transform interfaces.TransformService, logger arbor.ILogger) *Service {
	return &Service{
		transform: transform,
		logger:    logger,
	}
}

// decodedPage pairs decoded blocks with their wire position so explicit
// indices can reorder pages after decoding.
type decodedPage struct {
	sourceIndex int // wire index, -1 when absent
	arrayOrder  int
	blocks      []models.Block
	warnings    []models.Warning
}

// Process converts a raw recognition response into a ProcessedDocument.
// Pages keep response order unless every page carries an explicit index, in
// which case pages sort by index and later duplicates of an index drop with
// a warning.
func (s *Service) Process(raw *models.OCRResponse) (*models.ProcessedDocument, error) {
	if raw == nil {
		return nil, models.NewPipelineError(models.ErrMalformedResponse, "processor.process",
			fmt.Errorf("recognition response is nil"))
	}
	if len(raw.Pages) == 0 {
		return nil, models.NewPipelineError(models.ErrMalformedResponse, "processor.process",
			fmt.Errorf("recognition response contains no pages"))
	}

	decoded := make([]decodedPage, 0, len(raw.Pages))
	allIndexed := true
	for i, page := range raw.Pages {
		dp := decodedPage{sourceIndex: -1, arrayOrder: i}
		if page.Index != nil {
			dp.sourceIndex = *page.Index
		} else {
			allIndexed = false
		}
		dp.blocks, dp.warnings = s.decodePage(page, i+1)
		decoded = append(decoded, dp)
	}

	var warnings []models.Warning
	if allIndexed {
		decoded, warnings = orderByIndex(decoded)
	}

	doc := &models.ProcessedDocument{
		Pages:    make([]models.Page, 0, len(decoded)),
		Warnings: warnings,
	}
	for i, dp := range decoded {
		doc.Pages = append(doc.Pages, models.Page{
			Number:      i + 1,
			SourceIndex: dp.sourceIndex,
			Blocks:      dp.blocks,
		})
		doc.Warnings = append(doc.Warnings, dp.warnings...)
	}

	doc.Info = models.DocumentInfo{
		Model:     raw.Model,
		PageCount: len(doc.Pages),
	}
	if raw.UsageInfo != nil {
		doc.Info.PagesProcessed = raw.UsageInfo.PagesProcessed
		doc.Info.DocSizeBytes = raw.UsageInfo.DocSizeBytes
	}

	s.logger.Debug().
		Int("pages", len(doc.Pages)).
		Int("warnings", len(doc.Warnings)).
		Str("model", doc.Info.Model).
		Msg("Recognition result processed")

	return doc, nil
}

// orderByIndex sorts pages by their explicit wire index, keeping array
// order between equal indices, and drops later duplicates of an index.
func orderByIndex(pages []decodedPage) ([]decodedPage, []models.Warning) {
	sorted := make([]decodedPage, len(pages))
	copy(sorted, pages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].sourceIndex < sorted[j].sourceIndex
	})

	var warnings []models.Warning
	kept := sorted[:0]
	seen := make(map[int]bool, len(sorted))
	for _, p := range sorted {
		if seen[p.sourceIndex] {
			warnings = append(warnings, models.Warning{
				Code:    models.WarnDuplicatePageIndex,
				Page:    p.sourceIndex,
				Message: fmt.Sprintf("duplicate page index %d, keeping first occurrence", p.sourceIndex),
			})
			continue
		}
		seen[p.sourceIndex] = true
		kept = append(kept, p)
	}
	return kept, warnings
}

// decodePage decodes one wire page into ordered blocks. Block-oriented
// pages decode block by block; the legacy shape (markdown plus a page-level
// image list) decodes to a text block followed by image blocks.
func (s *Service) decodePage(page models.OCRPage, pageNum int) ([]models.Block, []models.Warning) {
	var blocks []models.Block
	var warnings []models.Warning

	if len(page.Blocks) > 0 {
		for _, wire := range page.Blocks {
			block, warning := s.decodeBlock(wire, pageNum)
			if warning != nil {
				warnings = append(warnings, *warning)
			}
			if block != nil {
				blocks = append(blocks, *block)
			}
		}
		return blocks, warnings
	}

	if strings.TrimSpace(page.Markdown) != "" {
		blocks = append(blocks, models.Block{
			Type: models.BlockTypeText,
			Text: page.Markdown,
		})
	}
	for _, img := range page.Images {
		if img.ImageBase64 == "" {
			warnings = append(warnings, models.Warning{
				Code:    models.WarnEmptyImage,
				Page:    pageNum,
				Message: fmt.Sprintf("image %q has no payload", img.ID),
			})
			continue
		}
		blocks = append(blocks, models.Block{
			Type: models.BlockTypeImage,
			Image: &models.ImageData{
				ID:     img.ID,
				Base64: img.ImageBase64,
				Alt:    img.Alt,
			},
		})
	}

	return blocks, warnings
}

// decodeBlock is the total mapping from wire blocks to model blocks. Every
// wire shape lands in exactly one of: a decoded block, a degraded text
// block with a warning, or a drop with a warning.
func (s *Service) decodeBlock(wire models.OCRBlock, pageNum int) (*models.Block, *models.Warning) {
	switch wire.Type {
	case "text", "paragraph", "":
		return s.decodeTextBlock(wire)

	case "table":
		return s.decodeTableBlock(wire, pageNum)

	case "image", "figure":
		if wire.ImageBase64 == "" {
			return nil, &models.Warning{
				Code:    models.WarnEmptyImage,
				Page:    pageNum,
				Message: fmt.Sprintf("image %q has no payload", wire.ID),
			}
		}
		return &models.Block{
			Type: models.BlockTypeImage,
			Image: &models.ImageData{
				ID:     wire.ID,
				Base64: wire.ImageBase64,
				Alt:    wire.Alt,
			},
		}, nil

	default:
		// Unknown block type: degrade to text when a usable payload
		// exists, otherwise drop.
		if block, _ := s.decodeTextBlock(wire); block != nil {
			return block, &models.Warning{
				Code:    models.WarnUnknownBlockDegraded,
				Page:    pageNum,
				Message: fmt.Sprintf("unknown block type %q degraded to text", wire.Type),
			}
		}
		return nil, &models.Warning{
			Code:    models.WarnUnknownBlockDropped,
			Page:    pageNum,
			Message: fmt.Sprintf("unknown block type %q with no usable payload dropped", wire.Type),
		}
	}
}

// decodeTextBlock resolves the text payload, converting HTML when no plain
// text is present. Returns nil when the block carries nothing renderable.
func (s *Service) decodeTextBlock(wire models.OCRBlock) (*models.Block, *models.Warning) {
	text := strings.TrimSpace(wire.Text)
	if text == "" && wire.HTML != "" {
		converted, err := s.transform.HTMLToMarkdown(wire.HTML)
		if err == nil {
			text = strings.TrimSpace(converted)
		}
	}
	if text == "" {
		return nil, nil
	}
	return &models.Block{Type: models.BlockTypeText, Text: text}, nil
}

// decodeTableBlock builds TableData from explicit rows, recovering rows
// from an HTML payload when none are given. An HTML table with no row
// structure degrades to a text block.
func (s *Service) decodeTableBlock(wire models.OCRBlock, pageNum int) (*models.Block, *models.Warning) {
	headers := wire.Headers
	rows := wire.Rows

	if len(rows) == 0 && wire.HTML != "" {
		var err error
		headers, rows, err = tableFromHTML(wire.HTML)
		if err != nil || len(rows)+len(headers) == 0 {
			// No row structure recoverable; fall back to markdown text.
			if converted, cerr := s.transform.HTMLToMarkdown(wire.HTML); cerr == nil && strings.TrimSpace(converted) != "" {
				return &models.Block{Type: models.BlockTypeText, Text: strings.TrimSpace(converted)},
					&models.Warning{
						Code:    models.WarnTableDegraded,
						Page:    pageNum,
						Message: "table without row structure degraded to text",
					}
			}
		}
	}

	if len(headers) == 0 && len(rows) == 0 {
		return nil, &models.Warning{
			Code:    models.WarnEmptyTable,
			Page:    pageNum,
			Message: "table block with no rows dropped",
		}
	}

	return &models.Block{
		Type:  models.BlockTypeTable,
		Table: &models.TableData{Headers: headers, Rows: rows},
	}, nil
}

// tableFromHTML extracts header and body rows from an HTML table fragment.
func tableFromHTML(html string) ([]string, [][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse table HTML: %w", err)
	}

	var headers []string
	var rows [][]string
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		isHeader := false
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if goquery.NodeName(cell) == "th" {
				isHeader = true
			}
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if isHeader && headers == nil && len(rows) == 0 {
			headers = cells
			return
		}
		rows = append(rows, cells)
	})

	return headers, rows, nil
}
