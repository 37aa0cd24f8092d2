// Package legacy moves the pre-CMS JSON settings blobs into normalized tables.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/content"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/util"
)

var ErrUnknownKey = errors.New("unknown legacy key")

const defaultOverlayOpacity = 0.3

// Tables maps each legacy settings key to the table it fills.
var Tables = map[string]string{
	"treatments":   "treatments",
	"faqs":         "faqs",
	"notices":      "notices",
	"marquee":      "marquee_items",
	"heroImages":   "hero_images",
	"pageHeadings": "page_headings",
	"pageHeroes":   "page_heroes",
	"equipment":    "equipment",
	"healthInfo":   "health_info_articles",
}

// Keys returns the known legacy keys in a stable order.
func Keys() []string {
	keys := make([]string, 0, len(Tables))
	for k := range Tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Batch holds the rows reshaped from one legacy key. Only the slice that
// matches Key is populated.
type Batch struct {
	Key     string
	Table   string
	Skipped int

	Treatments   []store.Treatment
	FAQs         []store.FAQ
	Notices      []store.Notice
	Marquee      []store.MarqueeItem
	HeroImages   []store.HeroImage
	PageHeadings []store.PageHeading
	PageHeroes   []store.PageHero
	Equipment    []store.Equipment
	Articles     []store.Article
}

func (b Batch) Len() int {
	return len(b.Treatments) + len(b.FAQs) + len(b.Notices) + len(b.Marquee) +
		len(b.HeroImages) + len(b.PageHeadings) + len(b.PageHeroes) +
		len(b.Equipment) + len(b.Articles)
}

// Reshape decodes the blob stored under key into rows for its target table.
func Reshape(key string, raw json.RawMessage) (Batch, error) {
	return reshapeAt(key, raw, time.Now().UTC())
}

func reshapeAt(key string, raw json.RawMessage, now time.Time) (Batch, error) {
	table, ok := Tables[key]
	if !ok {
		return Batch{Key: key}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	b := &Batch{Key: key, Table: table}
	var err error
	switch key {
	case "treatments":
		err = b.treatments(raw)
	case "faqs":
		err = b.faqs(raw)
	case "notices":
		err = b.notices(raw, now)
	case "marquee":
		err = b.marquee(raw)
	case "heroImages":
		err = b.heroImages(raw)
	case "pageHeadings":
		err = b.pageHeadings(raw, now)
	case "pageHeroes":
		err = b.pageHeroes(raw, now)
	case "equipment":
		err = b.equipment(raw)
	case "healthInfo":
		err = b.articles(raw, now)
	}
	if err != nil {
		return Batch{Key: key, Table: table}, fmt.Errorf("reshape %s: %w", key, err)
	}
	return *b, nil
}

// decodeList accepts a JSON array, or null/empty as no items.
func decodeList(raw json.RawMessage) ([]json.RawMessage, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected an array: %w", err)
	}
	return items, nil
}

func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// pick returns the first non-empty string stored under any of names.
func pick(obj map[string]any, names ...string) string {
	for _, name := range names {
		switch v := obj[name].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func pickBool(obj map[string]any, names ...string) bool {
	for _, name := range names {
		switch v := obj[name].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return false
}

func pickNumber(obj map[string]any, name string) (float64, bool) {
	switch v := obj[name].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

var noticeDateLayouts = []string{time.RFC3339, "2006-01-02", "2006.01.02", "2006/01/02"}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range noticeDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// uniqueSlug appends -2, -3, ... until slug is not in seen, then marks it taken.
func uniqueSlug(seen map[string]bool, slug string) string {
	candidate := slug
	for n := 2; seen[candidate]; n++ {
		suffix := "-" + strconv.Itoa(n)
		candidate = util.TruncateSlug(slug, content.MaxSlug-len(suffix)) + suffix
	}
	seen[candidate] = true
	return candidate
}

// AvoidSlugs renames batch slugs that collide with taken ones.
func (b *Batch) AvoidSlugs(taken []string) {
	seen := make(map[string]bool, len(taken))
	for _, slug := range taken {
		seen[slug] = true
	}
	for i := range b.Treatments {
		b.Treatments[i].Slug = uniqueSlug(seen, b.Treatments[i].Slug)
	}
	for i := range b.Articles {
		b.Articles[i].Slug = uniqueSlug(seen, b.Articles[i].Slug)
	}
}

func (b *Batch) treatments(raw json.RawMessage) error {
	items, err := decodeList(raw)
	if err != nil {
		return err
	}
	seen := map[string]bool{}
	for i, item := range items {
		obj, ok := decodeObject(item)
		if !ok {
			b.Skipped++
			continue
		}
		t := store.Treatment{
			ID:          util.NewID("trt"),
			Title:       pick(obj, "title", "name"),
			Summary:     pick(obj, "summary"),
			Description: pick(obj, "description", "content"),
			Category:    pick(obj, "category"),
			ImageURL:    pick(obj, "image", "imageUrl"),
			SortOrder:   i,
			Published:   true,
		}
		if order, ok := pickNumber(obj, "order"); ok && order >= 0 {
			t.SortOrder = int(order)
		}
		if content.Treatment(&t) != nil {
			b.Skipped++
			continue
		}
		t.Slug = uniqueSlug(seen, t.Slug)
		b.Treatments = append(b.Treatments, t)
	}
	return nil
}

func (b *Batch) faqs(raw json.RawMessage) error {
	items, err := decodeList(raw)
	if err != nil {
		return err
	}
	for i, item := range items {
		obj, ok := decodeObject(item)
		if !ok {
			b.Skipped++
			continue
		}
		f := store.FAQ{
			ID:        util.NewID("faq"),
			Question:  pick(obj, "question", "q"),
			Answer:    pick(obj, "answer", "a"),
			Category:  pick(obj, "category"),
			SortOrder: i,
			Published: true,
		}
		if content.FAQ(&f) != nil {
			b.Skipped++
			continue
		}
		b.FAQs = append(b.FAQs, f)
	}
	return nil
}

func (b *Batch) notices(raw json.RawMessage, now time.Time) error {
	items, err := decodeList(raw)
	if err != nil {
		return err
	}
	for _, item := range items {
		obj, ok := decodeObject(item)
		if !ok {
			b.Skipped++
			continue
		}
		published := now
		if d, ok := parseDate(pick(obj, "date", "createdAt")); ok {
			published = d
		}
		n := store.Notice{
			ID:          util.NewID("ntc"),
			Title:       pick(obj, "title"),
			Body:        pick(obj, "content", "body"),
			Pinned:      pickBool(obj, "important", "pinned"),
			Published:   true,
			PublishedAt: &published,
		}
		if content.Notice(&n) != nil {
			b.Skipped++
			continue
		}
		b.Notices = append(b.Notices, n)
	}
	return nil
}

func (b *Batch) marquee(raw json.RawMessage) error {
	if isEmpty(raw) {
		return nil
	}
	var texts []string
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		texts = []string{bare}
	} else {
		var shaped struct {
			Text  string   `json:"text"`
			Items []string `json:"items"`
		}
		if err := json.Unmarshal(raw, &shaped); err != nil {
			return fmt.Errorf("expected a string or an object with text or items: %w", err)
		}
		if shaped.Text != "" {
			texts = append(texts, shaped.Text)
		}
		texts = append(texts, shaped.Items...)
	}
	for _, text := range texts {
		m := store.MarqueeItem{
			ID:        util.NewID("mrq"),
			Text:      text,
			SortOrder: len(b.Marquee),
			Active:    true,
		}
		if content.MarqueeItem(&m) != nil {
			b.Skipped++
			continue
		}
		b.Marquee = append(b.Marquee, m)
	}
	return nil
}

func (b *Batch) heroImages(raw json.RawMessage) error {
	items, err := decodeList(raw)
	if err != nil {
		return err
	}
	for i, item := range items {
		h := store.HeroImage{ID: util.NewID("hero"), SortOrder: i, Active: true}
		var url string
		if err := json.Unmarshal(item, &url); err == nil {
			h.ImageURL = url
		} else if obj, ok := decodeObject(item); ok {
			h.ImageURL = pick(obj, "url", "image", "src")
			h.AltText = pick(obj, "alt", "altText")
			h.LinkURL = pick(obj, "link", "linkUrl")
		} else {
			b.Skipped++
			continue
		}
		if content.HeroImage(&h) != nil {
			b.Skipped++
			continue
		}
		b.HeroImages = append(b.HeroImages, h)
	}
	return nil
}

func decodePages(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	if isEmpty(raw) {
		return nil, nil, nil
	}
	var pages map[string]json.RawMessage
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, nil, fmt.Errorf("expected an object keyed by page: %w", err)
	}
	keys := make([]string, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, pages, nil
}

func (b *Batch) pageHeadings(raw json.RawMessage, now time.Time) error {
	keys, pages, err := decodePages(raw)
	if err != nil {
		return err
	}
	for _, key := range keys {
		obj, ok := decodeObject(pages[key])
		if !ok {
			b.Skipped++
			continue
		}
		p := store.PageHeading{
			PageKey:   key,
			Title:     pick(obj, "title"),
			Subtitle:  pick(obj, "subtitle"),
			UpdatedBy: "legacy-migration",
			UpdatedAt: now,
		}
		if content.PageHeading(&p) != nil {
			b.Skipped++
			continue
		}
		b.PageHeadings = append(b.PageHeadings, p)
	}
	return nil
}

func (b *Batch) pageHeroes(raw json.RawMessage, now time.Time) error {
	keys, pages, err := decodePages(raw)
	if err != nil {
		return err
	}
	for _, key := range keys {
		obj, ok := decodeObject(pages[key])
		if !ok {
			b.Skipped++
			continue
		}
		p := store.PageHero{
			PageKey:        key,
			ImageURL:       pick(obj, "image", "imageUrl", "url"),
			Title:          pick(obj, "title"),
			Subtitle:       pick(obj, "subtitle"),
			OverlayOpacity: defaultOverlayOpacity,
			UpdatedBy:      "legacy-migration",
			UpdatedAt:      now,
		}
		if v, ok := pickNumber(obj, "overlayOpacity"); ok {
			p.OverlayOpacity = v
		}
		if content.PageHero(&p) != nil {
			b.Skipped++
			continue
		}
		b.PageHeroes = append(b.PageHeroes, p)
	}
	return nil
}

func (b *Batch) equipment(raw json.RawMessage) error {
	items, err := decodeList(raw)
	if err != nil {
		return err
	}
	for i, item := range items {
		obj, ok := decodeObject(item)
		if !ok {
			b.Skipped++
			continue
		}
		e := store.Equipment{
			ID:           util.NewID("eqp"),
			Name:         pick(obj, "name", "title"),
			Description:  pick(obj, "description"),
			Manufacturer: pick(obj, "manufacturer"),
			ImageURL:     pick(obj, "image", "imageUrl"),
			SortOrder:    i,
			Published:    true,
		}
		if content.Equipment(&e) != nil {
			b.Skipped++
			continue
		}
		b.Equipment = append(b.Equipment, e)
	}
	return nil
}

func (b *Batch) articles(raw json.RawMessage, now time.Time) error {
	items, err := decodeList(raw)
	if err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, item := range items {
		obj, ok := decodeObject(item)
		if !ok {
			b.Skipped++
			continue
		}
		published := now
		a := store.Article{
			ID:           util.NewID("art"),
			Title:        pick(obj, "title"),
			Summary:      pick(obj, "summary"),
			Body:         pick(obj, "content", "body"),
			Category:     pick(obj, "category"),
			ThumbnailURL: pick(obj, "thumbnail", "image"),
			Published:    true,
			PublishedAt:  &published,
			UpdatedBy:    "legacy-migration",
		}
		if content.Article(&a) != nil {
			b.Skipped++
			continue
		}
		a.Slug = uniqueSlug(seen, a.Slug)
		b.Articles = append(b.Articles, a)
	}
	return nil
}
