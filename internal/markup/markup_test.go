package markup

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	got := string(ToHTML("# Vitamin D\n\nSunlight **helps**.\n\n- fish\n- eggs"))
	for _, want := range []string{"<h1", "Vitamin D</h1>", "<strong>helps</strong>", "<li>fish</li>", "<ul>"} {
		if !strings.Contains(got, want) {
			t.Errorf("ToHTML() missing %q in %s", want, got)
		}
	}
}

func TestToHTMLDropsRawHTMLAndScripts(t *testing.T) {
	cases := []string{
		"hello <script>alert(1)</script>",
		"<img src=x onerror=alert(1)>",
		"[click](javascript:alert(1))",
	}
	for _, src := range cases {
		got := string(ToHTML(src))
		if strings.Contains(got, "<script") || strings.Contains(got, "onerror") || strings.Contains(got, "javascript:") {
			t.Errorf("ToHTML(%q) = %s; unsafe output", src, got)
		}
	}
}

func TestToHTMLEmpty(t *testing.T) {
	if got := ToHTML("   \n"); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestPlainTextAndExcerpt(t *testing.T) {
	src := "## Flu shots\n\nAvailable **Mon–Fri** & weekends."
	if got := PlainText(src); got != "Flu shots Available Mon–Fri & weekends." {
		t.Fatalf("PlainText() = %q", got)
	}
	if got := Excerpt(src, 9); got != "Flu shots…" {
		t.Fatalf("Excerpt() = %q", got)
	}
	if got := Excerpt("short", 100); got != "short" {
		t.Fatalf("Excerpt() = %q", got)
	}
}
