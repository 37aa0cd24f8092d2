package export

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/markup"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"go.uber.org/zap"
)

type Service struct {
	siteName string
	baseURL  string
	timeout  time.Duration
	lookPath func(string) (string, error)
	logger   *zap.Logger
}

func NewService(siteName, baseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		siteName: siteName,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  30 * time.Second,
		lookPath: exec.LookPath,
		logger:   logger.Named("export"),
	}
}

// Available reports whether a headless Chrome binary is on PATH.
func (s *Service) Available() bool {
	for _, bin := range chromeBinaries {
		if _, err := s.lookPath(bin); err == nil {
			return true
		}
	}
	return false
}

// HandoutFor builds the handout for a published article.
func (s *Service) HandoutFor(article store.Article) Handout {
	return Handout{
		SiteName:  s.siteName,
		Title:     article.Title,
		Summary:   article.Summary,
		Category:  article.Category,
		BodyHTML:  markup.ToHTML(article.Body),
		SourceURL: s.baseURL + "/health-info/" + article.Slug,
		UpdatedAt: article.UpdatedAt,
	}
}

// ArticlePDF renders the article handout as an A4 PDF.
func (s *Service) ArticlePDF(ctx context.Context, article store.Article) (*Result, error) {
	html, err := RenderHandoutHTML(s.HandoutFor(article))
	if err != nil {
		return nil, fmt.Errorf("render handout: %w", err)
	}
	started := time.Now()
	data, err := s.printPDF(ctx, html)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("printed handout",
		zap.String("article_id", article.ID),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(started)))
	return &Result{
		Data:     data,
		Filename: sanitizeFilename(article.Slug) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}
