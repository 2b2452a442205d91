package models

// Wire types for the document recognition API. Responses are untrusted
// input: every field is optional and interpretation belongs to the result
// processor, not the decoder.

const (
	// DocumentTypeURL is the payload type for URL and data URL submissions.
	DocumentTypeURL = "document_url"
)

// OCRRequest is the submission envelope for the recognition endpoint.
type OCRRequest struct {
	Model              string          `json:"model"`
	Document           DocumentPayload `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64"`
}

// DocumentPayload identifies the document being submitted.
type DocumentPayload struct {
	Type         string `json:"type"`
	DocumentURL  string `json:"document_url,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
}

// OCRResponse is the raw recognition result for one document.
type OCRResponse struct {
	Model     string     `json:"model,omitempty"`
	Pages     []OCRPage  `json:"pages"`
	UsageInfo *UsageInfo `json:"usage_info,omitempty"`
}

// OCRPage is one recognized page. Index is a pointer so an absent index can
// be told apart from an explicit zero. Block-oriented pages carry Blocks;
// the legacy shape carries Markdown plus a page-level image list.
type OCRPage struct {
	Index      *int            `json:"index,omitempty"`
	Blocks     []OCRBlock      `json:"blocks,omitempty"`
	Markdown   string          `json:"markdown,omitempty"`
	Images     []OCRImage      `json:"images,omitempty"`
	Dimensions *PageDimensions `json:"dimensions,omitempty"`
}

// OCRBlock is one content region on a page. Which fields are populated
// depends on Type; unknown types are handled by the processor.
type OCRBlock struct {
	Type    string     `json:"type"`
	Text    string     `json:"text,omitempty"`
	HTML    string     `json:"html,omitempty"`
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`

	// Image payload fields
	ID           string `json:"id,omitempty"`
	ImageBase64  string `json:"image_base64,omitempty"`
	Alt          string `json:"alt,omitempty"`
	TopLeftX     int    `json:"top_left_x,omitempty"`
	TopLeftY     int    `json:"top_left_y,omitempty"`
	BottomRightX int    `json:"bottom_right_x,omitempty"`
	BottomRightY int    `json:"bottom_right_y,omitempty"`
}

// OCRImage is a page-level extracted image.
type OCRImage struct {
	ID           string `json:"id"`
	ImageBase64  string `json:"image_base64,omitempty"`
	Alt          string `json:"alt,omitempty"`
	TopLeftX     int    `json:"top_left_x,omitempty"`
	TopLeftY     int    `json:"top_left_y,omitempty"`
	BottomRightX int    `json:"bottom_right_x,omitempty"`
	BottomRightY int    `json:"bottom_right_y,omitempty"`
}

// PageDimensions describes the rendered size of a recognized page.
type PageDimensions struct {
	DPI    int `json:"dpi,omitempty"`
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// UsageInfo reports service-side accounting for a submission.
type UsageInfo struct {
	PagesProcessed int   `json:"pages_processed"`
	DocSizeBytes   int64 `json:"doc_size_bytes,omitempty"`
}

// KeyValidation is the outcome of an API key check. An invalid key is a
// normal result, not an error.
type KeyValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ModelsResponse is the body of the model listing endpoint, used for key
// validation.
type ModelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// ModelInfo describes one available recognition model.
type ModelInfo struct {
	ID string `json:"id"`
}
