package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"linkbio/internal/docstore"
	"linkbio/internal/middleware"
	"linkbio/internal/service"
)

func (h HandlerSet) SaveStyle(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "style fields required"})
		return
	}

	if err := h.widgets.SaveStyle(c.Request.Context(), user.ID, c.Param("widget"), fields); err != nil {
		if errors.Is(err, service.ErrUnknownWidget) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func (h HandlerSet) GetStyle(c *gin.Context) {
	style, err := h.widgets.GetStyle(c.Request.Context(), c.Param("ownerId"), c.Param("widget"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownWidget) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("get style failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, style)
}

// ListWidgetDocs serves a widget's documents for public page rendering. The
// profile widget is special-cased: it is a single document, not a collection.
func (h HandlerSet) ListWidgetDocs(c *gin.Context) {
	ownerID := c.Param("ownerId")

	var collection string
	switch c.Param("widget") {
	case "profile":
		h.profileDoc(c, ownerID)
		return
	case "diary":
		collection = service.DiaryCollection(ownerID)
	case "links":
		collection = service.LinksCollection(ownerID)
	case "calendar":
		collection = service.CalendarCollection(ownerID)
	case "guestbook":
		collection = service.GuestbookCollection(ownerID)
	case "persona":
		collection = service.PersonaCollection(ownerID)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown widget"})
		return
	}

	docs, err := h.widgets.ListCollection(c.Request.Context(), collection)
	if err != nil {
		h.log.Error().Err(err).Str("collection", collection).Msg("list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	items := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// profileDoc returns the profile document (logo, background, carousel) a
// viewer needs before any live snapshot arrives. A page with nothing
// configured yet reads as an empty document, not an error.
func (h HandlerSet) profileDoc(c *gin.Context, ownerID string) {
	doc, err := h.docs.Get(c.Request.Context(), "users", ownerID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("profile read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, doc.Data)
}

type diaryRequest struct {
	Title string `json:"title"`
	Body  string `json:"body" binding:"required"`
	Mood  string `json:"mood"`
}

func (h HandlerSet) CreateDiaryEntry(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req diaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body required"})
		return
	}

	entry, err := h.widgets.CreateDiaryEntry(c.Request.Context(), user.ID, req.Title, req.Body, req.Mood)
	if err != nil {
		h.log.Error().Err(err).Msg("create diary entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h HandlerSet) DeleteDiaryEntry(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.widgets.DeleteDiaryEntry(c.Request.Context(), user.ID, c.Param("entryId")); err != nil {
		h.log.Error().Err(err).Msg("delete diary entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type calendarRequest struct {
	Title string `json:"title" binding:"required"`
	Date  string `json:"date" binding:"required"`
	Note  string `json:"note"`
}

func (h HandlerSet) CreateCalendarEntry(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req calendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and date required"})
		return
	}

	entry, err := h.widgets.CreateCalendarEntry(c.Request.Context(), user.ID, req.Title, req.Date, req.Note)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h HandlerSet) DeleteCalendarEntry(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.widgets.DeleteCalendarEntry(c.Request.Context(), user.ID, c.Param("entryId")); err != nil {
		h.log.Error().Err(err).Msg("delete calendar entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type linkRequest struct {
	Title    string `json:"title" binding:"required"`
	URL      string `json:"url" binding:"required"`
	Position int    `json:"position"`
}

func (h HandlerSet) CreateLink(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and url required"})
		return
	}

	link, err := h.widgets.CreateLink(c.Request.Context(), user.ID, req.Title, req.URL, req.Position)
	if err != nil {
		h.log.Error().Err(err).Msg("create link failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h HandlerSet) DeleteLink(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.widgets.DeleteLink(c.Request.Context(), user.ID, c.Param("linkId")); err != nil {
		h.log.Error().Err(err).Msg("delete link failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type guestbookRequest struct {
	AuthorName string `json:"authorName" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

func (h HandlerSet) AddGuestbookEntry(c *gin.Context) {
	var req guestbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorName and message required"})
		return
	}

	entry, err := h.widgets.AddGuestbookEntry(c.Request.Context(), c.Param("ownerId"), req.AuthorName, req.Message)
	if err != nil {
		h.log.Error().Err(err).Msg("guestbook entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h HandlerSet) LikeGuestbookEntry(c *gin.Context) {
	err := h.widgets.LikeGuestbookEntry(c.Request.Context(), c.Param("ownerId"), c.Param("entryId"))
	if err != nil {
		h.log.Error().Err(err).Msg("guestbook like failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "liked"})
}
