package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type changeFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// ChangesHandler upgrades clients onto the collection change feed.
type ChangesHandler struct {
	feed changeFeed
}

// NewChangesHandler constructs ChangesHandler.
func NewChangesHandler(feed changeFeed) *ChangesHandler {
	return &ChangesHandler{feed: feed}
}

// Stream godoc
// @Summary Websocket stream of collection changes
// @Tags Realtime
// @Param access_token query string false "Bearer token for browsers that cannot set headers"
// @Success 101
// @Router /changes/ws [get]
func (h *ChangesHandler) Stream(c *gin.Context) {
	if h.feed == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.feed.ServeWS(c.Writer, c.Request)
}
