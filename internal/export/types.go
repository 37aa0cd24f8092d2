// Package export renders printable patient handouts for health-info articles.
package export

import (
	"errors"
	"html/template"
	"time"
)

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// Handout is the data printed on a patient handout.
type Handout struct {
	SiteName  string
	Title     string
	Summary   string
	Category  string
	BodyHTML  template.HTML
	SourceURL string
	UpdatedAt time.Time
}

// ErrPDFDependencyMissing indicates no headless Chrome binary is installed.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
