package processor

import (
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriptor/internal/models"
	"github.com/ternarybob/scriptor/internal/services/transform"
)

func newTestService() *Service {
	logger := arbor.NewLogger()
	return NewService(transform.NewService(logger), logger)
}

func intPtr(v int) *int {
	return &v
}

func textBlock(text string) models.OCRBlock {
	return models.OCRBlock{Type: "text", Text: text}
}

func TestProcess_PageCountAndOrder(t *testing.T) {
	svc := newTestService()

	raw := &models.OCRResponse{
		Model: "test-ocr-1",
		Pages: []models.OCRPage{
			{Blocks: []models.OCRBlock{textBlock("first")}},
			{Blocks: []models.OCRBlock{textBlock("second")}},
			{Blocks: []models.OCRBlock{textBlock("third")}},
		},
		UsageInfo: &models.UsageInfo{PagesProcessed: 3, DocSizeBytes: 1024},
	}

	doc, err := svc.Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(doc.Pages) != 3 {
		t.Fatalf("Expected 3 pages, got %d", len(doc.Pages))
	}
	if doc.Info.PageCount != 3 {
		t.Errorf("Expected page count 3, got %d", doc.Info.PageCount)
	}
	if doc.Info.Model != "test-ocr-1" {
		t.Errorf("Expected model test-ocr-1, got %q", doc.Info.Model)
	}
	if doc.Info.PagesProcessed != 3 || doc.Info.DocSizeBytes != 1024 {
		t.Errorf("Usage info not carried over: %+v", doc.Info)
	}

	want := []string{"first", "second", "third"}
	for i, page := range doc.Pages {
		if page.Number != i+1 {
			t.Errorf("Page %d has number %d", i, page.Number)
		}
		if page.SourceIndex != -1 {
			t.Errorf("Page %d should have no source index, got %d", i, page.SourceIndex)
		}
		if len(page.Blocks) != 1 || page.Blocks[0].Text != want[i] {
			t.Errorf("Page %d blocks = %+v, want text %q", i, page.Blocks, want[i])
		}
	}
}

func TestProcess_ExplicitIndexOrdering(t *testing.T) {
	svc := newTestService()

	raw := &models.OCRResponse{
		Pages: []models.OCRPage{
			{Index: intPtr(2), Blocks: []models.OCRBlock{textBlock("third")}},
			{Index: intPtr(0), Blocks: []models.OCRBlock{textBlock("first")}},
			{Index: intPtr(1), Blocks: []models.OCRBlock{textBlock("second")}},
		},
	}

	doc, err := svc.Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := []string{"first", "second", "third"}
	for i, page := range doc.Pages {
		if page.Number != i+1 {
			t.Errorf("Page %d has number %d", i, page.Number)
		}
		if page.Blocks[0].Text != want[i] {
			t.Errorf("Page %d text = %q, want %q", i, page.Blocks[0].Text, want[i])
		}
	}
	if doc.WarningCount() != 0 {
		t.Errorf("Expected no warnings, got %d", doc.WarningCount())
	}
}

func TestProcess_DuplicateIndexKeepsFirst(t *testing.T) {
	svc := newTestService()

	raw := &models.OCRResponse{
		Pages: []models.OCRPage{
			{Index: intPtr(1), Blocks: []models.OCRBlock{textBlock("keep")}},
			{Index: intPtr(1), Blocks: []models.OCRBlock{textBlock("drop")}},
			{Index: intPtr(2), Blocks: []models.OCRBlock{textBlock("last")}},
		},
	}

	doc, err := svc.Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(doc.Pages) != 2 {
		t.Fatalf("Expected 2 pages after dedupe, got %d", len(doc.Pages))
	}
	if doc.Pages[0].Blocks[0].Text != "keep" {
		t.Errorf("First occurrence not kept: %q", doc.Pages[0].Blocks[0].Text)
	}
	if doc.Pages[1].Blocks[0].Text != "last" {
		t.Errorf("Second page wrong: %q", doc.Pages[1].Blocks[0].Text)
	}
	if doc.Pages[0].Number != 1 || doc.Pages[1].Number != 2 {
		t.Errorf("Page numbers not dense: %d, %d", doc.Pages[0].Number, doc.Pages[1].Number)
	}
	if doc.WarningCount() != 1 {
		t.Fatalf("Expected exactly 1 warning, got %d", doc.WarningCount())
	}
	if doc.Warnings[0].Code != models.WarnDuplicatePageIndex {
		t.Errorf("Wrong warning code: %s", doc.Warnings[0].Code)
	}
}

func TestProcess_MixedIndexPresenceKeepsRawOrder(t *testing.T) {
	svc := newTestService()

	// One page lacks an index, so explicit indices cannot order the set.
	raw := &models.OCRResponse{
		Pages: []models.OCRPage{
			{Index: intPtr(5), Blocks: []models.OCRBlock{textBlock("a")}},
			{Blocks: []models.OCRBlock{textBlock("b")}},
			{Index: intPtr(0), Blocks: []models.OCRBlock{textBlock("c")}},
		},
	}

	doc, err := svc.Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := []string{"a", "b", "c"}
	for i, page := range doc.Pages {
		if page.Blocks[0].Text != want[i] {
			t.Errorf("Page %d text = %q, want %q", i, page.Blocks[0].Text, want[i])
		}
	}
	if doc.Pages[1].SourceIndex != -1 {
		t.Errorf("Unindexed page should report -1, got %d", doc.Pages[1].SourceIndex)
	}
}

func TestProcess_MalformedResponses(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name string
		raw  *models.OCRResponse
	}{
		{"nil response", nil},
		{"zero pages", &models.OCRResponse{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Process(tt.raw)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !models.IsKind(err, models.ErrMalformedResponse) {
				t.Errorf("Expected malformed_response, got %v", models.KindOf(err))
			}
		})
	}
}

func TestProcess_UnknownBlockHandling(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name      string
		block     models.OCRBlock
		wantType  models.BlockType
		wantCode  string
		wantDrops bool
	}{
		{
			name:     "unknown type with text degrades",
			block:    models.OCRBlock{Type: "equation", Text: "E = mc^2"},
			wantType: models.BlockTypeText,
			wantCode: models.WarnUnknownBlockDegraded,
		},
		{
			name:     "unknown type with html degrades",
			block:    models.OCRBlock{Type: "callout", HTML: "<p>note</p>"},
			wantType: models.BlockTypeText,
			wantCode: models.WarnUnknownBlockDegraded,
		},
		{
			name:      "unknown type without payload drops",
			block:     models.OCRBlock{Type: "chart"},
			wantCode:  models.WarnUnknownBlockDropped,
			wantDrops: true,
		},
		{
			name:      "image without payload drops",
			block:     models.OCRBlock{Type: "image", ID: "img-1"},
			wantCode:  models.WarnEmptyImage,
			wantDrops: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &models.OCRResponse{
				Pages: []models.OCRPage{
					{Blocks: []models.OCRBlock{textBlock("good"), tt.block}},
				},
			}

			doc, err := svc.Process(raw)
			if err != nil {
				t.Fatalf("One bad block must not abort the document: %v", err)
			}
			if doc.WarningCount() != 1 {
				t.Fatalf("Expected 1 warning, got %d", doc.WarningCount())
			}
			if doc.Warnings[0].Code != tt.wantCode {
				t.Errorf("Warning code = %s, want %s", doc.Warnings[0].Code, tt.wantCode)
			}

			wantBlocks := 2
			if tt.wantDrops {
				wantBlocks = 1
			}
			blocks := doc.Pages[0].Blocks
			if len(blocks) != wantBlocks {
				t.Fatalf("Expected %d blocks, got %d", wantBlocks, len(blocks))
			}
			if !tt.wantDrops && blocks[1].Type != tt.wantType {
				t.Errorf("Degraded block type = %s, want %s", blocks[1].Type, tt.wantType)
			}
		})
	}
}

func TestProcess_TableDecoding(t *testing.T) {
	svc := newTestService()

	t.Run("explicit rows win", func(t *testing.T) {
		raw := &models.OCRResponse{
			Pages: []models.OCRPage{{Blocks: []models.OCRBlock{{
				Type: "table",
				Rows: [][]string{{"A", "B"}, {"1", "2"}},
				HTML: "<table><tr><td>ignored</td></tr></table>",
			}}}},
		}

		doc, err := svc.Process(raw)
		if err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		block := doc.Pages[0].Blocks[0]
		if block.Type != models.BlockTypeTable || block.Table == nil {
			t.Fatalf("Expected table block, got %+v", block)
		}
		if len(block.Table.Rows) != 2 || block.Table.Rows[0][0] != "A" || block.Table.Rows[1][1] != "2" {
			t.Errorf("Rows not preserved: %+v", block.Table.Rows)
		}
	})

	t.Run("rows recovered from html", func(t *testing.T) {
		raw := &models.OCRResponse{
			Pages: []models.OCRPage{{Blocks: []models.OCRBlock{{
				Type: "table",
				HTML: "<table><tr><th>Name</th><th>Qty</th></tr><tr><td>Bolt</td><td>4</td></tr></table>",
			}}}},
		}

		doc, err := svc.Process(raw)
		if err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		block := doc.Pages[0].Blocks[0]
		if block.Type != models.BlockTypeTable || block.Table == nil {
			t.Fatalf("Expected table block, got %+v", block)
		}
		if len(block.Table.Headers) != 2 || block.Table.Headers[0] != "Name" {
			t.Errorf("Headers not recovered: %+v", block.Table.Headers)
		}
		if len(block.Table.Rows) != 1 || block.Table.Rows[0][0] != "Bolt" {
			t.Errorf("Rows not recovered: %+v", block.Table.Rows)
		}
	})

	t.Run("empty table drops with warning", func(t *testing.T) {
		raw := &models.OCRResponse{
			Pages: []models.OCRPage{{Blocks: []models.OCRBlock{
				textBlock("body"),
				{Type: "table"},
			}}},
		}

		doc, err := svc.Process(raw)
		if err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		if len(doc.Pages[0].Blocks) != 1 {
			t.Errorf("Empty table should drop, blocks = %+v", doc.Pages[0].Blocks)
		}
		if doc.WarningCount() != 1 || doc.Warnings[0].Code != models.WarnEmptyTable {
			t.Errorf("Expected empty_table warning, got %+v", doc.Warnings)
		}
	})
}

func TestProcess_LegacyPageShape(t *testing.T) {
	svc := newTestService()

	raw := &models.OCRResponse{
		Pages: []models.OCRPage{{
			Index:    intPtr(0),
			Markdown: "# Heading\n\nBody text.",
			Images: []models.OCRImage{
				{ID: "img-0.png", ImageBase64: "aGVsbG8=", Alt: "figure"},
			},
		}},
	}

	doc, err := svc.Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	blocks := doc.Pages[0].Blocks
	if len(blocks) != 2 {
		t.Fatalf("Expected text + image blocks, got %d", len(blocks))
	}
	if blocks[0].Type != models.BlockTypeText || blocks[0].Text != "# Heading\n\nBody text." {
		t.Errorf("Text block wrong: %+v", blocks[0])
	}
	if blocks[1].Type != models.BlockTypeImage || blocks[1].Image.ID != "img-0.png" {
		t.Errorf("Image block wrong: %+v", blocks[1])
	}
}

func TestProcess_HTMLTextBlock(t *testing.T) {
	svc := newTestService()

	raw := &models.OCRResponse{
		Pages: []models.OCRPage{{Blocks: []models.OCRBlock{
			{Type: "text", HTML: "<p>Converted <strong>content</strong></p>"},
		}}},
	}

	doc, err := svc.Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(doc.Pages[0].Blocks) != 1 {
		t.Fatalf("Expected 1 block, got %d", len(doc.Pages[0].Blocks))
	}
	text := doc.Pages[0].Blocks[0].Text
	if text == "" || text[0] == '<' {
		t.Errorf("HTML not converted to markdown: %q", text)
	}
}
