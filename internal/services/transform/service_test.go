package transform

import (
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
)

func TestHTMLToMarkdown(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	tests := []struct {
		name string
		html string
		want string
	}{
		{"paragraph", "<p>Hello world</p>", "Hello world"},
		{"emphasis", "<p>an <strong>important</strong> word</p>", "**important**"},
		{"heading", "<h2>Section</h2>", "## Section"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.HTMLToMarkdown(tt.html)
			if err != nil {
				t.Fatalf("HTMLToMarkdown failed: %v", err)
			}
			if tt.want == "" {
				if strings.TrimSpace(got) != "" {
					t.Errorf("Expected empty output, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Output %q missing %q", got, tt.want)
			}
		})
	}
}

func TestHTMLToMarkdown_FallbackStripsTags(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	// Script-only content converts to empty markdown, triggering the
	// strip-tags fallback.
	got, err := svc.HTMLToMarkdown("<custom-tag attr='1'>inner &amp; text</custom-tag>")
	if err != nil {
		t.Fatalf("HTMLToMarkdown failed: %v", err)
	}
	if strings.Contains(got, "<custom-tag") {
		t.Errorf("Tags not removed: %q", got)
	}
	if !strings.Contains(got, "inner & text") {
		t.Errorf("Content lost: %q", got)
	}
}

func TestValidateHTML(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	if err := svc.ValidateHTML("<p>ok</p>"); err != nil {
		t.Errorf("Valid HTML rejected: %v", err)
	}
	if err := svc.ValidateHTML(""); err == nil {
		t.Error("Empty content accepted")
	}
	if err := svc.ValidateHTML("just text"); err == nil {
		t.Error("Tag-free content accepted")
	}
}
