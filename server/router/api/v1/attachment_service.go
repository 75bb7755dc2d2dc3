package v1

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	apierrors "github.com/muhandis-ai/muhandis/server/internal/errors"
)

const (
	attachmentDir     = "attachments"
	thumbnailDir      = ".thumbnail_cache"
	thumbnailMaxWidth = 512
	maxUploadBytes    = 32 << 20 // 32 MiB
)

var imageMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// CreateAttachment accepts a multipart upload and stores it under the data
// directory. Image uploads get a thumbnail generated in the background.
func (s *APIV1Service) CreateAttachment(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return writeChatError(c, apierrors.InvalidArgument("missing file field"))
	}
	if fileHeader.Size > maxUploadBytes {
		return writeChatError(c, apierrors.InvalidArgument("file exceeds the 32 MiB upload limit"))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to read upload", err))
	}
	defer src.Close()

	dir := filepath.Join(s.Profile.Data, attachmentDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return writeChatError(c, apierrors.Internal("failed to prepare attachment directory", err))
	}

	name := shortuuid.New() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return writeChatError(c, apierrors.Internal("failed to store attachment", err))
	}
	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return writeChatError(c, apierrors.Internal("failed to store attachment", err))
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if imageMimeTypes[mimeType] {
		go s.generateThumbnail(path, name)
	}

	s.logger.Info("stored attachment", "name", name, "size", written, "mime_type", mimeType)
	return c.JSON(http.StatusOK, attachmentRef{
		Name:     fileHeader.Filename,
		URL:      fmt.Sprintf("/file/attachments/%s", name),
		Size:     written,
		MimeType: mimeType,
	})
}

// GetAttachment serves a stored attachment. Passing thumbnail=true serves the
// downscaled variant when one exists.
func (s *APIV1Service) GetAttachment(c echo.Context) error {
	name := filepath.Base(c.Param("filename"))
	if name == "." || name == "/" {
		return writeChatError(c, apierrors.InvalidArgument("invalid attachment name"))
	}

	path := filepath.Join(s.Profile.Data, attachmentDir, name)
	if c.QueryParam("thumbnail") == "true" {
		thumbPath := filepath.Join(s.Profile.Data, attachmentDir, thumbnailDir, name)
		if _, err := os.Stat(thumbPath); err == nil {
			path = thumbPath
		}
	}

	if _, err := os.Stat(path); err != nil {
		return writeChatError(c, apierrors.MessageNotFound(name))
	}
	return c.File(path)
}

// generateThumbnail downscales an image attachment. Bounded by the semaphore
// so a burst of uploads cannot exhaust memory.
func (s *APIV1Service) generateThumbnail(srcPath, name string) {
	if err := s.thumbnailSemaphore.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer s.thumbnailSemaphore.Release(1)

	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		s.logger.Warn("failed to decode image for thumbnail", "name", name, "error", err)
		return
	}

	if img.Bounds().Dx() > thumbnailMaxWidth {
		img = imaging.Resize(img, thumbnailMaxWidth, 0, imaging.Lanczos)
	}

	dir := filepath.Join(s.Profile.Data, attachmentDir, thumbnailDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		s.logger.Warn("failed to prepare thumbnail directory", "error", err)
		return
	}
	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		s.logger.Warn("failed to save thumbnail", "name", name, "error", err)
	}
}
