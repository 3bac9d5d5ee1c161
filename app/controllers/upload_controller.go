package controllers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/storage"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/upload"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/usercontext"
)

type UploadController struct {
	store   storage.Uploader
	maxSize int
}

func NewUploadController(store storage.Uploader, maxSize int) *UploadController {
	return &UploadController{store: store, maxSize: maxSize}
}

// HandlePhotoUpload stores an instructor or member photo, normalised to a
// bounded JPEG, and returns its key and public URL.
func (uc *UploadController) HandlePhotoUpload(c *fiber.Ctx) error {
	return uc.newPhotoWorkflow(c).run()
}

type photoWorkflow struct {
	c       *fiber.Ctx
	userCtx usercontext.UserContext
	store   storage.Uploader
	maxSize int
}

func (uc *UploadController) newPhotoWorkflow(c *fiber.Ctx) *photoWorkflow {
	return &photoWorkflow{
		c:       c,
		userCtx: usercontext.GetUserContext(c),
		store:   uc.store,
		maxSize: uc.maxSize,
	}
}

func (w *photoWorkflow) run() error {
	kind := w.c.Query("kind")
	if !storage.ValidPhotoKind(kind) {
		return jsonError(w.c, fiber.StatusBadRequest, "invalid_request", "kind must be instructor or member")
	}

	file, err := w.parseUploadForm()
	if err != nil {
		return respondError(w.c, err)
	}

	src, err := w.openChecked(file)
	if err != nil {
		return respondError(w.c, err)
	}
	defer src.Close()

	photo, err := storage.PreparePhoto(src, w.maxSize)
	if err != nil {
		return respondError(w.c, err)
	}

	up, err := w.store.Upload(w.c.UserContext(), storage.PhotoKey(kind), bytes.NewReader(photo), "image/jpeg")
	if err != nil {
		if !errors.Is(err, storage.ErrDisabled) && !errors.Is(err, context.DeadlineExceeded) {
			fiberlog.Errorf("[Upload] %s photo upload via %s failed: %v", kind, w.store.Name(), err)
			return jsonError(w.c, fiber.StatusBadGateway, "bad_gateway", "photo storage unavailable")
		}
		return respondError(w.c, err)
	}

	fiberlog.Infof("[Upload] %s stored %s photo %s (%d bytes)", w.userCtx.Email, kind, up.Key, len(photo))
	return w.c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key":  up.Key,
		"url":  up.URL,
		"kind": kind,
		"size": len(photo),
	})
}

func (w *photoWorkflow) parseUploadForm() (*multipart.FileHeader, error) {
	file, err := w.c.FormFile("file")
	if err != nil {
		return nil, markHandledResponse(jsonError(w.c, fiber.StatusBadRequest, "invalid_request", "multipart field \"file\" is required"))
	}
	return file, nil
}

// openChecked sniffs the head of the upload before handing the full stream on.
func (w *photoWorkflow) openChecked(file *multipart.FileHeader) (multipart.File, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	head := make([]byte, upload.SniffLen)
	n, _ := io.ReadFull(src, head)
	if _, err := upload.ValidatePhotoBySniff(file.Filename, head[:n]); err != nil {
		_ = src.Close()
		return nil, markHandledResponse(jsonError(w.c, fiber.StatusUnsupportedMediaType, "unsupported_media_type", err.Error()))
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		_ = src.Close()
		return nil, err
	}
	return src, nil
}
