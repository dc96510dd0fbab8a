package markdown_test

import (
	"strings"
	"testing"

	"mentorpay/internal/platform/markdown"
)

func TestRenderFrontmatterKeepsFieldOrder(t *testing.T) {
	t.Parallel()
	out, err := markdown.RenderFrontmatter([]markdown.Field{
		{Key: "session_id", Value: "s-1"},
		{Key: "status", Value: "completed"},
		{Key: "progress", Value: 100},
	}, "# Report\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	first := strings.Index(out, "session_id")
	second := strings.Index(out, "status")
	third := strings.Index(out, "progress")
	if first < 0 || !(first < second && second < third) {
		t.Fatalf("fields out of order:\n%s", out)
	}

	meta, body, err := markdown.SplitFrontmatter(out)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if meta["status"] != "completed" || meta["progress"] != 100 {
		t.Fatalf("unexpected meta: %v", meta)
	}
	if !strings.HasPrefix(strings.TrimSpace(body), "# Report") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestSplitFrontmatterWithoutHeader(t *testing.T) {
	t.Parallel()
	meta, body, err := markdown.SplitFrontmatter("plain body")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(meta) != 0 || body != "plain body" {
		t.Fatalf("expected untouched body, got %v %q", meta, body)
	}
	if _, _, err := markdown.SplitFrontmatter("---\nkey: v\nno closing"); err == nil {
		t.Fatalf("expected error for missing closing separator")
	}
}
