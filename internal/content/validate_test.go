package content

import (
	"strings"
	"testing"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
)

func TestTreatmentDerivesSlugAndTrims(t *testing.T) {
	item := store.Treatment{Title: "  IV Vitamin Therapy  ", Summary: " fast "}
	if errs := Treatment(&item); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if item.Title != "IV Vitamin Therapy" || item.Slug != "iv-vitamin-therapy" || item.Summary != "fast" {
		t.Fatalf("unexpected normalized treatment: %+v", item)
	}

	explicit := store.Treatment{Title: "Botox", Slug: "Botox Special!"}
	if errs := Treatment(&explicit); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if explicit.Slug != "botox-special" {
		t.Fatalf("slug = %q", explicit.Slug)
	}
}

func TestTreatmentCollectsEveryFailure(t *testing.T) {
	item := store.Treatment{
		Title:     "",
		Category:  strings.Repeat("c", MaxCategory+1),
		ImageURL:  "ftp://files.example/x.png",
		SortOrder: -1,
	}
	errs := Treatment(&item)
	for _, field := range []string{"title", "category", "imageUrl", "sortOrder"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected error for %s, got %v", field, errs)
		}
	}
	if _, ok := errs["slug"]; ok {
		t.Error("slug should not be reported when the title is missing")
	}
}

func TestLimitsCountRunes(t *testing.T) {
	title := strings.Repeat("가", MaxTitle)
	item := store.Treatment{Title: title}
	if errs := Treatment(&item); errs != nil {
		t.Fatalf("%d Hangul runes should be allowed: %v", MaxTitle, errs)
	}
	item = store.Treatment{Title: title + "가"}
	if errs := Treatment(&item); errs["title"] == "" {
		t.Fatal("expected title length error")
	}
}

func TestValidURL(t *testing.T) {
	cases := map[string]bool{
		"https://clinic.example/a.png": true,
		"http://clinic.example":        true,
		"/media/images/2024/01/a.png":  true,
		"//evil.example/x":             false,
		"javascript:alert(1)":          false,
		"ftp://x.example/a":            false,
		"relative/path":                false,
		"/with space":                  false,
	}
	for in, want := range cases {
		if got := ValidURL(in); got != want {
			t.Errorf("ValidURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFAQAndNotice(t *testing.T) {
	if errs := FAQ(&store.FAQ{Question: "Hours?", Answer: ""}); errs["answer"] == "" {
		t.Fatalf("expected answer error, got %v", errs)
	}
	if errs := Notice(&store.Notice{Title: "Closed", Body: "Holiday"}); errs != nil {
		t.Fatalf("unexpected errors %v", errs)
	}
	if errs := Notice(&store.Notice{Title: strings.Repeat("n", MaxNoticeTitle+1), Body: "x"}); errs["title"] == "" {
		t.Fatal("expected title length error")
	}
}

func TestPageHeadingAndHero(t *testing.T) {
	if errs := PageHeading(&store.PageHeading{PageKey: "contact", Title: "Hi"}); errs["pageKey"] == "" {
		t.Fatal("unknown page key should fail")
	}
	if errs := PageHeading(&store.PageHeading{PageKey: "health-info", Title: "Health"}); errs != nil {
		t.Fatalf("unexpected errors %v", errs)
	}

	hero := store.PageHero{PageKey: "home", ImageURL: "/media/hero.jpg", OverlayOpacity: 1.5}
	if errs := PageHero(&hero); errs["overlayOpacity"] == "" {
		t.Fatal("opacity above 1 should fail")
	}
	hero.OverlayOpacity = 0.4
	if errs := PageHero(&hero); errs != nil {
		t.Fatalf("unexpected errors %v", errs)
	}
	if errs := PageHero(&store.PageHero{PageKey: "home"}); errs["imageUrl"] == "" {
		t.Fatal("image url is required")
	}
}

func TestMarqueeHeroEquipmentArticle(t *testing.T) {
	if errs := MarqueeItem(&store.MarqueeItem{Text: "  "}); errs["text"] == "" {
		t.Fatal("blank marquee text should fail")
	}
	if errs := HeroImage(&store.HeroImage{ImageURL: "/a.jpg", LinkURL: "notaurl"}); errs["linkUrl"] == "" {
		t.Fatal("bad link url should fail")
	}
	if errs := Equipment(&store.Equipment{Name: "Inbody 770"}); errs != nil {
		t.Fatalf("unexpected errors %v", errs)
	}

	a := store.Article{Title: "Vitamin D", Body: ""}
	errs := Article(&a)
	if errs["body"] == "" {
		t.Fatal("article body is required")
	}
	a.Body = "text"
	if errs := Article(&a); errs != nil || a.Slug != "vitamin-d" {
		t.Fatalf("unexpected result %v slug=%q", errs, a.Slug)
	}
}

func TestFieldErrors(t *testing.T) {
	var none FieldErrors
	if none.Err() != nil {
		t.Fatal("empty FieldErrors should yield nil error")
	}
	errs := FieldErrors{"title": "is required", "body": "is required"}
	if got := errs.Error(); got != "invalid input: body: is required; title: is required" {
		t.Fatalf("Error() = %q", got)
	}
}
