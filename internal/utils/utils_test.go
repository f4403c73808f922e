package utils

import (
	"strings"
	"testing"
	"time"
)

func TestTTLCache(t *testing.T) {
	c := NewCache(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1, time.Minute)
	if got := c.Get("a"); got != 1 {
		t.Fatalf("Get(a) = %v, want 1", got)
	}

	now = now.Add(2 * time.Minute)
	if got := c.Get("a"); got != nil {
		t.Errorf("expired entry returned %v", got)
	}

	c.Set("b", "x", time.Hour)
	c.Delete("b")
	if c.Get("b") != nil {
		t.Error("deleted entry still present")
	}
}

func TestIntOr(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 100},
		{"abc", 100},
		{"0", 100},
		{"25", 25},
		{" 7 ", 7},
	}
	for _, tt := range tests {
		if got := IntOr(tt.in, 100, 1); got != tt.want {
			t.Errorf("IntOr(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFirstImage(t *testing.T) {
	html := `<p>intro</p><img src="https://img.example.com/a.png"><img src="b.png">`
	if got := FirstImage(html); got != "https://img.example.com/a.png" {
		t.Errorf("FirstImage = %q", got)
	}
	if got := FirstImage("no images here"); got != "" {
		t.Errorf("FirstImage without img = %q", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := string(RenderMarkdown("## Title\n\n**bold** text\n\n<script>alert(1)</script>"))
	if !strings.Contains(out, "<h2") || !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("unexpected render: %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("script not sanitized: %s", out)
	}
}
