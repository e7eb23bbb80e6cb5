package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waveroom/marketplace-backend/internal/logger"
	"github.com/waveroom/marketplace-backend/internal/platform/apierr"
	"github.com/waveroom/marketplace-backend/internal/requestdata"
	"github.com/waveroom/marketplace-backend/internal/services"
	"github.com/waveroom/marketplace-backend/internal/types"
)

type CartHandler struct {
	log      *logger.Logger
	sessions *services.CartSessions
}

func NewCartHandler(log *logger.Logger, sessions *services.CartSessions) *CartHandler {
	return &CartHandler{log: log.With("handler", "CartHandler"), sessions: sessions}
}

func (ch *CartHandler) engine(c *gin.Context) (*services.CartEngine, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	engine, err := ch.sessions.Engine(c.Request.Context(), rd)
	if err != nil {
		ch.log.Error("Failed to obtain cart engine", "error", err)
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return nil, false
	}
	return engine, true
}

func (ch *CartHandler) GetCart(c *gin.Context) {
	engine, ok := ch.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active": engine.ActiveItems(),
		"saved":  engine.SavedItems(),
	})
}

func (ch *CartHandler) Contains(c *gin.Context) {
	engine, ok := ch.engine(c)
	if !ok {
		return
	}
	kind, err := types.ParseEntityKind(c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := uuid.Parse(c.Query("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"in_cart": engine.IsInCart(types.EntityRef{Kind: kind, ID: id}),
	})
}

type addItemRequest struct {
	Kind             string   `json:"kind" binding:"required"`
	ID               string   `json:"id" binding:"required"`
	Quantity         int      `json:"quantity"`
	SelectedVariants []string `json:"selected_variants"`
}

func (ch *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := types.ParseEntityKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity id"})
		return
	}

	engine, ok := ch.engine(c)
	if !ok {
		return
	}
	item, err := engine.Add(c.Request.Context(), types.EntityRef{Kind: kind, ID: id}, req.Quantity, req.SelectedVariants)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "active": engine.ActiveItems()})
}

func (ch *CartHandler) AddTrackVariant(c *gin.Context) {
	var req services.TrackVariantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	engine, ok := ch.engine(c)
	if !ok {
		return
	}
	item, err := engine.AddTrackVariant(c.Request.Context(), req)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "active": engine.ActiveItems()})
}

func (ch *CartHandler) RemoveItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	engine, ok := ch.engine(c)
	if !ok {
		return
	}
	if err := engine.Remove(c.Request.Context(), itemID); err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": engine.ActiveItems(), "saved": engine.SavedItems()})
}

func (ch *CartHandler) SaveItem(c *gin.Context) {
	ch.setSaved(c, true)
}

func (ch *CartHandler) RestoreItem(c *gin.Context) {
	ch.setSaved(c, false)
}

func (ch *CartHandler) setSaved(c *gin.Context, saved bool) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	engine, ok := ch.engine(c)
	if !ok {
		return
	}
	if saved {
		err = engine.SaveForLater(c.Request.Context(), itemID)
	} else {
		err = engine.MoveToCart(c.Request.Context(), itemID)
	}
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": engine.ActiveItems(), "saved": engine.SavedItems()})
}

func (ch *CartHandler) Clear(c *gin.Context) {
	engine, ok := ch.engine(c)
	if !ok {
		return
	}
	if err := engine.Clear(c.Request.Context()); err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": engine.ActiveItems(), "saved": engine.SavedItems()})
}
