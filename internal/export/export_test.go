package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
)

func testArticle() store.Article {
	return store.Article{
		ID:        "art_1",
		Slug:      "vitamin-d-basics",
		Title:     "Vitamin D basics",
		Summary:   "What to know before testing.",
		Body:      "## Sources\n\n- sunlight\n- <script>alert(1)</script>",
		Category:  "nutrition",
		UpdatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRenderHandoutHTML(t *testing.T) {
	svc := NewService("Vitamin Clinic", "https://clinic.example/", nil)
	html, err := RenderHandoutHTML(svc.HandoutFor(testArticle()))
	if err != nil {
		t.Fatalf("RenderHandoutHTML() error = %v", err)
	}

	for _, want := range []string{
		"Vitamin D basics",
		"What to know before testing.",
		"Vitamin Clinic",
		"<h2>Sources</h2>",
		"<li>sunlight</li>",
		"Updated 2024-05-01",
		"https://clinic.example/health-info/vitamin-d-basics",
		"size: A4",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("handout missing %q", want)
		}
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("raw script from body must not survive rendering")
	}
}

func TestRenderEscapesTitle(t *testing.T) {
	html, err := RenderHandoutHTML(Handout{Title: "<b>bold</b>"})
	if err != nil {
		t.Fatalf("RenderHandoutHTML() error = %v", err)
	}
	if strings.Contains(html, "<b>bold</b>") {
		t.Fatal("title should be escaped")
	}
}

func TestArticlePDFWithoutChrome(t *testing.T) {
	svc := NewService("Vitamin Clinic", "", nil)
	svc.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	if svc.Available() {
		t.Fatal("expected Available() to be false")
	}
	_, err := svc.ArticlePDF(context.Background(), testArticle())
	if !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("expected ErrPDFDependencyMissing, got %v", err)
	}
}

func TestAvailableFindsAnyBinary(t *testing.T) {
	svc := NewService("Vitamin Clinic", "", nil)
	svc.lookPath = func(name string) (string, error) {
		if name == "google-chrome" {
			return "/usr/bin/google-chrome", nil
		}
		return "", errors.New("not found")
	}
	if !svc.Available() {
		t.Fatal("expected Available() to be true")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"vitamin-d-basics", "vitamin-d-basics"},
		{"Flu Shot 2024", "Flu-Shot-2024"},
		{"비타민", "handout"},
		{"a/b\\c..d", "abcd"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	if got := percentEncodeForDataURL("a b+<"); got != "a%20b%2B%3C" {
		t.Fatalf("percentEncodeForDataURL() = %q", got)
	}
	if got := percentEncodeForDataURL("é"); got != "%C3%A9" {
		t.Fatalf("percentEncodeForDataURL(é) = %q", got)
	}
}
