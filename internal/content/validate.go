// Package content normalizes and validates CMS input before it is stored.
package content

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/util"
)

// FieldErrors maps a JSON field name to a human readable problem.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Err returns nil when there are no field errors.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// PageKeys are the pages that carry a heading and a hero.
var PageKeys = []string{"home", "treatments", "faq", "notices", "equipment", "health-info", "about"}

func ValidPageKey(key string) bool {
	for _, k := range PageKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ValidURL accepts absolute http(s) URLs and site-relative paths.
func ValidURL(value string) bool {
	if strings.HasPrefix(value, "/") {
		return !strings.HasPrefix(value, "//") && !strings.ContainsAny(value, " \t\r\n")
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type checker struct {
	errs FieldErrors
}

func newChecker() *checker {
	return &checker{errs: FieldErrors{}}
}

func (c *checker) fail(field, format string, args ...any) {
	if _, exists := c.errs[field]; !exists {
		c.errs[field] = fmt.Sprintf(format, args...)
	}
}

func (c *checker) required(field string, value *string, max int) {
	*value = strings.TrimSpace(*value)
	if *value == "" {
		c.fail(field, "is required")
		return
	}
	c.max(field, *value, max)
}

func (c *checker) optional(field string, value *string, max int) {
	*value = strings.TrimSpace(*value)
	c.max(field, *value, max)
}

func (c *checker) max(field, value string, max int) {
	if n := utf8.RuneCountInString(value); n > max {
		c.fail(field, "must be at most %d characters", max)
	}
}

func (c *checker) url(field string, value *string, required bool) {
	*value = strings.TrimSpace(*value)
	if *value == "" {
		if required {
			c.fail(field, "is required")
		}
		return
	}
	c.max(field, *value, MaxURL)
	if !ValidURL(*value) {
		c.fail(field, "must be an http(s) URL or a path starting with /")
	}
}

func (c *checker) sortOrder(value int) {
	if value < 0 {
		c.fail("sortOrder", "must be zero or greater")
	}
}

func (c *checker) slug(value *string, title string) {
	*value = strings.TrimSpace(*value)
	if *value == "" {
		*value = util.TruncateSlug(util.Slugify(title), MaxSlug)
	} else {
		*value = util.Slugify(*value)
	}
	if *value == "" {
		c.fail("slug", "could not be derived from title")
		return
	}
	c.max("slug", *value, MaxSlug)
}

func (c *checker) result() FieldErrors {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

func Treatment(t *store.Treatment) FieldErrors {
	c := newChecker()
	c.required("title", &t.Title, MaxTitle)
	if _, failed := c.errs["title"]; !failed {
		c.slug(&t.Slug, t.Title)
	}
	c.optional("summary", &t.Summary, MaxSummary)
	c.optional("description", &t.Description, MaxLongBody)
	c.optional("category", &t.Category, MaxCategory)
	c.url("imageUrl", &t.ImageURL, false)
	c.sortOrder(t.SortOrder)
	return c.result()
}

func FAQ(f *store.FAQ) FieldErrors {
	c := newChecker()
	c.required("question", &f.Question, MaxQuestion)
	c.required("answer", &f.Answer, MaxAnswer)
	c.optional("category", &f.Category, MaxCategory)
	c.sortOrder(f.SortOrder)
	return c.result()
}

func Notice(n *store.Notice) FieldErrors {
	c := newChecker()
	c.required("title", &n.Title, MaxNoticeTitle)
	c.required("body", &n.Body, MaxLongBody)
	return c.result()
}

func MarqueeItem(m *store.MarqueeItem) FieldErrors {
	c := newChecker()
	c.required("text", &m.Text, MaxMarquee)
	c.url("linkUrl", &m.LinkURL, false)
	c.sortOrder(m.SortOrder)
	return c.result()
}

func HeroImage(h *store.HeroImage) FieldErrors {
	c := newChecker()
	c.url("imageUrl", &h.ImageURL, true)
	c.optional("altText", &h.AltText, MaxAltText)
	c.url("linkUrl", &h.LinkURL, false)
	c.sortOrder(h.SortOrder)
	return c.result()
}

func PageHeading(p *store.PageHeading) FieldErrors {
	c := newChecker()
	pageKey(c, &p.PageKey)
	c.required("title", &p.Title, MaxTitle)
	c.optional("subtitle", &p.Subtitle, MaxSummary)
	return c.result()
}

func PageHero(p *store.PageHero) FieldErrors {
	c := newChecker()
	pageKey(c, &p.PageKey)
	c.url("imageUrl", &p.ImageURL, true)
	c.optional("title", &p.Title, MaxTitle)
	c.optional("subtitle", &p.Subtitle, MaxSummary)
	if p.OverlayOpacity < 0 || p.OverlayOpacity > 1 {
		c.fail("overlayOpacity", "must be between 0 and 1")
	}
	return c.result()
}

func pageKey(c *checker, key *string) {
	*key = strings.TrimSpace(*key)
	if !ValidPageKey(*key) {
		c.fail("pageKey", "must be one of %s", strings.Join(PageKeys, ", "))
	}
}

func Equipment(e *store.Equipment) FieldErrors {
	c := newChecker()
	c.required("name", &e.Name, MaxTitle)
	c.optional("description", &e.Description, MaxAnswer)
	c.optional("manufacturer", &e.Manufacturer, MaxTitle)
	c.url("imageUrl", &e.ImageURL, false)
	c.sortOrder(e.SortOrder)
	return c.result()
}

func Article(a *store.Article) FieldErrors {
	c := newChecker()
	c.required("title", &a.Title, MaxNoticeTitle)
	if _, failed := c.errs["title"]; !failed {
		c.slug(&a.Slug, a.Title)
	}
	c.optional("summary", &a.Summary, MaxArticleSummary)
	c.required("body", &a.Body, MaxArticleBody)
	c.optional("category", &a.Category, MaxCategory)
	c.url("thumbnailUrl", &a.ThumbnailURL, false)
	return c.result()
}
