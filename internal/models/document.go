package models

// BlockType identifies the kind of content a block carries.
type BlockType string

const (
	// BlockTypeText is a paragraph or free-form markdown region.
	BlockTypeText BlockType = "text"
	// BlockTypeTable is tabular content in row-major order.
	BlockTypeTable BlockType = "table"
	// BlockTypeImage is an extracted image payload.
	BlockTypeImage BlockType = "image"
	// BlockTypeUnknown marks a wire shape the decoder does not recognize.
	// Unknown blocks never survive processing: they degrade to text or are
	// dropped with a warning.
	BlockTypeUnknown BlockType = "unknown"
)

func (t BlockType) String() string {
	return string(t)
}

// Block is one content element on a page. Exactly one payload field is
// populated, selected by Type.
type Block struct {
	Type  BlockType  `json:"type"`
	Text  string     `json:"text,omitempty"`
	Table *TableData `json:"table,omitempty"`
	Image *ImageData `json:"image,omitempty"`
}

// TableData holds tabular content. When Headers is empty the first row
// serves as the header row.
type TableData struct {
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows"`
}

// ImageData holds an extracted image. Base64 may carry a data URL prefix.
type ImageData struct {
	ID     string `json:"id"`
	Base64 string `json:"base64,omitempty"`
	Alt    string `json:"alt,omitempty"`
}

// Page is one page of a processed document. Number is the 1-based position
// in the final page sequence. SourceIndex is the page index reported by the
// recognition service, or -1 when none was reported.
type Page struct {
	Number      int     `json:"number"`
	SourceIndex int     `json:"source_index"`
	Blocks      []Block `json:"blocks"`
}

// Warning records sub-document damage that was recovered during processing
// or rendering instead of failing the conversion.
type Warning struct {
	Code    string `json:"code"`
	Page    int    `json:"page,omitempty"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarnDuplicatePageIndex   = "duplicate_page_index"
	WarnUnknownBlockDegraded = "unknown_block_degraded"
	WarnUnknownBlockDropped  = "unknown_block_dropped"
	WarnTableDegraded        = "table_degraded"
	WarnEmptyTable           = "empty_table"
	WarnEmptyImage           = "empty_image"
	WarnBadImagePayload      = "undecodable_image"
)

// DocumentInfo summarizes a processed document.
type DocumentInfo struct {
	Model          string `json:"model,omitempty"`
	PageCount      int    `json:"page_count"`
	PagesProcessed int    `json:"pages_processed,omitempty"`
	DocSizeBytes   int64  `json:"doc_size_bytes,omitempty"`
}

// ProcessedDocument is the normalized form of a recognition result.
type ProcessedDocument struct {
	Info     DocumentInfo `json:"info"`
	Pages    []Page       `json:"pages"`
	Warnings []Warning    `json:"warnings,omitempty"`
}

// WarningCount returns the number of warnings recorded during processing.
func (d *ProcessedDocument) WarningCount() int {
	return len(d.Warnings)
}

// DocumentMetadata is caller-supplied descriptive metadata rendered into the
// markdown front matter. Empty fields are omitted from output. ConvertedAt
// is free-form text supplied by the caller so rendering stays deterministic.
type DocumentMetadata struct {
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Subject     string `json:"subject,omitempty"`
	PageCount   int    `json:"page_count,omitempty"`
	Model       string `json:"model,omitempty"`
	ConvertedAt string `json:"converted_at,omitempty"`
}

// Asset is a binary artifact extracted during rendering. Data is retained
// in memory so the artifact stays usable after its workspace is released.
type Asset struct {
	Name        string `json:"name"`
	RelPath     string `json:"rel_path"`
	Path        string `json:"path,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// MarkdownArtifact is the final output of a conversion. OutputPath is set
// when the artifact was persisted to an output directory.
type MarkdownArtifact struct {
	Markdown   string    `json:"markdown"`
	OutputPath string    `json:"output_path,omitempty"`
	Assets     []Asset   `json:"assets,omitempty"`
	Warnings   []Warning `json:"warnings,omitempty"`
}

// SourceInfo describes an inspected source document.
type SourceInfo struct {
	PageCount int   `json:"page_count"`
	Encrypted bool  `json:"encrypted"`
	FileSize  int64 `json:"file_size"`
}
