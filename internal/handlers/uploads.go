package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkbio/internal/docstore"
	"linkbio/internal/middleware"
	"linkbio/internal/pipeline"
	"linkbio/internal/service"
)

// Upload receives one or more files for an upload slot and runs the image
// pipeline for each. The document target and the superseded path are derived
// server-side from the slot, never taken from the client.
func (h HandlerSet) Upload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	slot := service.Slot(c.Param("slot"))

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}

	target, multi, err := h.slotTarget(c, slot, user.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sources := make([]pipeline.SourceFile, 0, len(files))
	for _, header := range files {
		src, err := readSource(header)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file: " + header.Filename})
			return
		}
		sources = append(sources, src)
	}

	if multi {
		urls, err := h.uploads.UploadMany(c.Request.Context(), slot, user.ID, sources, target)
		if err != nil {
			h.writeUploadError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"urls": urls})
		return
	}

	if len(sources) > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot accepts a single file"})
		return
	}

	crop, cancelled, err := cropFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, err := h.uploads.Upload(c.Request.Context(), service.SlotUpload{
		Slot:          slot,
		OwnerID:       user.ID,
		File:          sources[0],
		Crop:          crop,
		CropCancelled: cancelled,
		Target:        target,
	})
	if err != nil {
		h.writeUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": asset.URL, "path": asset.Path})
}

// slotTarget maps a slot to the owning document field, looking up the
// current value so a superseded asset can be cleaned up afterwards.
func (h HandlerSet) slotTarget(c *gin.Context, slot service.Slot, ownerID string) (pipeline.DocumentTarget, bool, error) {
	ctx := c.Request.Context()

	switch slot {
	case service.SlotLogo:
		target := pipeline.DocumentTarget{
			Collection: "users",
			DocID:      ownerID,
			Field:      "logoUrl",
			PathField:  "logoPath",
		}
		target.PreviousPath = h.currentPath(ctx, "users", ownerID, "logoPath")
		return target, false, nil

	case service.SlotBackground:
		target := pipeline.DocumentTarget{
			Collection: "users",
			DocID:      ownerID,
			Field:      "backgroundUrl",
			PathField:  "backgroundPath",
		}
		target.PreviousPath = h.currentPath(ctx, "users", ownerID, "backgroundPath")
		return target, false, nil

	case service.SlotCarousel:
		return pipeline.DocumentTarget{
			Collection: "users",
			DocID:      ownerID,
			Field:      "carouselImages",
			Append:     true,
		}, true, nil

	case service.SlotDiary:
		entryID := c.PostForm("entryId")
		if entryID == "" {
			return pipeline.DocumentTarget{}, false, errors.New("entryId required")
		}
		return pipeline.DocumentTarget{
			Collection: service.DiaryCollection(ownerID),
			DocID:      entryID,
			Field:      "images",
			Append:     true,
		}, true, nil

	case service.SlotPersona:
		entryID := c.PostForm("entryId")
		if entryID == "" {
			return pipeline.DocumentTarget{}, false, errors.New("entryId required")
		}
		target := pipeline.DocumentTarget{
			Collection: service.PersonaCollection(ownerID),
			DocID:      entryID,
			Field:      "uploadedImageUrl",
			PathField:  "uploadedImagePath",
		}
		target.PreviousPath = h.currentPath(ctx, target.Collection, entryID, "uploadedImagePath")
		return target, false, nil

	case service.SlotLinkIcon:
		linkID := c.PostForm("linkId")
		if linkID == "" {
			return pipeline.DocumentTarget{}, false, errors.New("linkId required")
		}
		target := pipeline.DocumentTarget{
			Collection: service.LinksCollection(ownerID),
			DocID:      linkID,
			Field:      "image",
			PathField:  "imagePath",
		}
		target.PreviousPath = h.currentPath(ctx, target.Collection, linkID, "imagePath")
		return target, false, nil

	default:
		return pipeline.DocumentTarget{}, false, errors.New("unknown upload slot")
	}
}

func (h HandlerSet) currentPath(ctx context.Context, collection, docID, field string) string {
	doc, err := h.docs.Get(ctx, collection, docID)
	if err != nil {
		if err != docstore.ErrNotFound {
			h.log.Warn().Err(err).Str("doc", collection+"/"+docID).Msg("previous path lookup failed")
		}
		return ""
	}
	path, _ := doc.Data[field].(string)
	return path
}

func readSource(header *multipart.FileHeader) (pipeline.SourceFile, error) {
	file, err := header.Open()
	if err != nil {
		return pipeline.SourceFile{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.SourceFile{}, err
	}

	return pipeline.SourceFile{
		Name: header.Filename,
		MIME: header.Header.Get("Content-Type"),
		Data: data,
	}, nil
}

// cropFromForm reads the optional crop region. A dismissed crop dialog is
// reported with cropCancelled=true and aborts the pipeline cleanly.
func cropFromForm(c *gin.Context) (*pipeline.CropRegion, bool, error) {
	if c.PostForm("cropCancelled") == "true" {
		return nil, true, nil
	}
	if c.PostForm("cropX") == "" {
		return nil, false, nil
	}

	fields := []string{"cropX", "cropY", "cropWidth", "cropHeight", "displayWidth", "displayHeight"}
	values := make([]float64, len(fields))
	for i, name := range fields {
		val, err := strconv.ParseFloat(c.PostForm(name), 64)
		if err != nil {
			return nil, false, errors.New("invalid crop field " + name)
		}
		values[i] = val
	}

	return &pipeline.CropRegion{
		X:             values[0],
		Y:             values[1],
		Width:         values[2],
		Height:        values[3],
		DisplayWidth:  values[4],
		DisplayHeight: values[5],
	}, false, nil
}

func (h HandlerSet) writeUploadError(c *gin.Context, err error) {
	var validationErr *pipeline.ValidationError
	var timeoutErr *pipeline.TimeoutError
	var uploadErr *pipeline.UploadError

	switch {
	case errors.Is(err, pipeline.ErrCancelled):
		c.JSON(http.StatusOK, gin.H{"cancelled": true})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason})
	case errors.As(err, &timeoutErr):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
	case errors.As(err, &uploadErr):
		h.log.Error().Err(err).Msg("upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
