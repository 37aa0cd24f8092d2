package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/audit"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/blob"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/content"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/util"
	"go.uber.org/zap"
)

// Upload is an image received from the admin UI.
type Upload struct {
	Filename string
	AltText  string
	Size     int64
	Body     io.Reader
}

var errUnsupportedImage = domainError(http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Only JPEG, PNG, GIF and WebP images are accepted", nil)

func (s *Service) MediaConfigured() bool {
	return s.media != nil
}

func (s *Service) MaxUploadBytes() int64 {
	return s.cfg.MaxUploadBytes
}

func errTooLarge(limit int64) *DomainError {
	return domainError(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", fmt.Sprintf("Files must be at most %d bytes", limit), nil)
}

// UploadImage sniffs the content type, stores the object and records it.
func (s *Service) UploadImage(ctx context.Context, actor Actor, up Upload) (ImageView, error) {
	if s.media == nil {
		return ImageView{}, errMediaUnavailable
	}
	if up.Size > s.cfg.MaxUploadBytes {
		return ImageView{}, errTooLarge(s.cfg.MaxUploadBytes)
	}
	altText := strings.TrimSpace(up.AltText)
	if n := len([]rune(altText)); n > content.MaxAltText {
		return ImageView{}, invalidField("altText", fmt.Sprintf("must be at most %d characters", content.MaxAltText))
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ImageView{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return ImageView{}, invalidField("file", "is empty")
	}
	contentType := http.DetectContentType(head)
	ext, ok := blob.ImageExtension(contentType)
	if !ok {
		return ImageView{}, errUnsupportedImage
	}

	id := util.NewID("img")
	key := blob.ImageKey(s.now(), id, ext)
	body := io.MultiReader(bytes.NewReader(head), up.Body)
	if err := s.media.Put(ctx, key, body, up.Size, contentType); err != nil {
		return ImageView{}, fmt.Errorf("store image: %w", err)
	}

	item := store.Image{
		ID:           id,
		ObjectKey:    key,
		URL:          s.cfg.MediaPublicBaseURL + "/" + key,
		ContentType:  contentType,
		SizeBytes:    up.Size,
		OriginalName: util.Truncate(path.Base(strings.ReplaceAll(up.Filename, "\\", "/")), 255),
		AltText:      altText,
		UploadedBy:   actor.UserName,
	}
	if err := s.store.InsertImage(ctx, item); err != nil {
		if delErr := s.media.Delete(ctx, key); delErr != nil {
			s.logger.Warn("remove orphaned image", zap.String("key", key), zap.Error(delErr))
		}
		return ImageView{}, fmt.Errorf("record image: %w", err)
	}
	if saved, err := s.store.GetImage(ctx, id); err == nil {
		item = saved
	}
	view := imageView(item)
	s.record(ctx, actor, audit.ActionUpload, "image", id, item.OriginalName, view)
	return view, nil
}

func (s *Service) ListImages(ctx context.Context, opts store.ListOptions) ([]ImageView, error) {
	items, err := s.store.ListImages(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapSlice(items, imageView), nil
}

// DeleteImage removes the stored object and then its row.
func (s *Service) DeleteImage(ctx context.Context, actor Actor, id string) error {
	if s.media == nil {
		return errMediaUnavailable
	}
	item, err := s.store.GetImage(ctx, id)
	if err != nil {
		return storeErr("Image", err)
	}
	if err := s.media.Delete(ctx, item.ObjectKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("delete image object: %w", err)
	}
	if err := s.store.DeleteImage(ctx, id); err != nil {
		return storeErr("Image", err)
	}
	s.record(ctx, actor, audit.ActionDelete, "image", id, item.OriginalName, imageView(item))
	return nil
}

// OpenMedia streams a stored object by key.
func (s *Service) OpenMedia(ctx context.Context, key string) (io.ReadCloser, blob.ObjectInfo, error) {
	if s.media == nil {
		return nil, blob.ObjectInfo{}, notFoundError("Media")
	}
	clean, ok := blob.CleanKey(key)
	if !ok {
		return nil, blob.ObjectInfo{}, notFoundError("Media")
	}
	rc, info, err := s.media.Get(ctx, clean)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, blob.ObjectInfo{}, notFoundError("Media")
		}
		return nil, blob.ObjectInfo{}, err
	}
	return rc, info, nil
}
