package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/notify"
	"github.com/waveroom/marketplace-backend/internal/requestdata"
)

// NoticeHandler streams cart notices for the request's session over SSE.
type NoticeHandler struct {
	log *logger.Logger
	hub *notify.Hub
}

func NewNoticeHandler(log *logger.Logger, hub *notify.Hub) *NoticeHandler {
	return &NoticeHandler{log: log.With("handler", "NoticeHandler"), hub: hub}
}

func (nh *NoticeHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session data"})
		return
	}

	client := nh.hub.NewClient(rd.SessionKey())
	nh.hub.AddClient(client)
	defer nh.hub.CloseClient(client)

	nh.hub.ServeHTTP(c.Writer, c.Request, client)
}
