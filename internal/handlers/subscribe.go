package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Page viewers connect from arbitrary origins; auth is not required for
	// public page state.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Subscribe streams live document snapshots over a websocket. Every write to
// the document — by its owner or by the upload pipeline — pushes a fresh
// snapshot, so viewers never refresh manually.
func (h HandlerSet) Subscribe(c *gin.Context) {
	collection := c.Query("collection")
	docID := c.Query("id")
	if collection == "" || docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection and id required"})
		return
	}

	snapshots, err := h.docs.Subscribe(c.Request.Context(), collection, docID)
	if err != nil {
		h.log.Error().Err(err).Msg("subscribe failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Drain client frames so close/ping handling works; the subscription
	// context ends when the request context does.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for snap := range snapshots {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}
