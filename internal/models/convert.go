package models

// SubmissionOptions controls how a document is submitted for recognition.
type SubmissionOptions struct {
	// Model selects the recognition model; empty uses the client default.
	Model string `json:"model,omitempty"`
	// IncludeImages requests embedded image payloads in the response.
	IncludeImages bool `json:"include_images,omitempty"`
}

// ConvertRequest describes one document conversion.
type ConvertRequest struct {
	// Content is the source document bytes.
	Content []byte `json:"-"`
	// Filename is the original file name, used for submission naming and
	// the output file stem.
	Filename string `json:"filename"`
	// Metadata is rendered into the markdown front matter.
	Metadata DocumentMetadata `json:"metadata"`
	// Options tune the recognition submission.
	Options SubmissionOptions `json:"options"`
	// OutputDir, when set, receives the markdown file and extracted assets
	// before the conversion workspace is released.
	OutputDir string `json:"output_dir,omitempty"`
}
