package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/dicetable/internal/core"
	"github.com/dkeye/dicetable/internal/domain"
	"github.com/dkeye/dicetable/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	svc Services
}

type TokenRequest struct {
	DisplayName string `json:"displayName"`
	UserID      string `json:"userId"`
}

type TokenResponse struct {
	Token    string           `json:"token"`
	Identity *domain.Identity `json:"identity"`
}

type RecordRequest struct {
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data"`
}

type RosterResponse struct {
	RoomCode domain.RoomCode      `json:"roomCode"`
	HasGM    bool                 `json:"hasGm"`
	Players  []domain.RosterEntry `json:"players"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) apiHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{
		"status": "ok",
		"store":  "ok",
		"rooms":  h.svc.Router.Rooms().Len(),
	}
	if h.svc.Hub != nil {
		body["connections"] = h.svc.Hub.Len()
	}
	if err := h.svc.Store.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("store ping failed")
		body["status"] = "degraded"
		body["store"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Router.Rooms().List())
}

func (h *handlers) roster(c *gin.Context) {
	code, err := core.NormalizeRoomCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	room, ok := h.svc.Router.Rooms().Lookup(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	_, hasGM := room.GM()
	c.JSON(http.StatusOK, RosterResponse{RoomCode: code, HasGM: hasGM, Players: room.Roster()})
}

func (h *handlers) getRecord(c *gin.Context) {
	kind, err := store.ParseKind(c.Param("kind"))
	if err != nil {
		storeError(c, err)
		return
	}
	rec, err := h.svc.Store.Get(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) putRecord(c *gin.Context) {
	kind, err := store.ParseKind(c.Param("kind"))
	if err != nil {
		storeError(c, err)
		return
	}
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid data"})
		return
	}
	rec := store.Record{
		ID:        c.Param("id"),
		Kind:      kind,
		RoomID:    req.RoomID,
		Data:      req.Data,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.svc.Store.Put(c.Request.Context(), rec); err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) deleteRecord(c *gin.Context) {
	kind, err := store.ParseKind(c.Param("kind"))
	if err != nil {
		storeError(c, err)
		return
	}
	if err := h.svc.Store.Delete(c.Request.Context(), kind, c.Param("id")); err != nil {
		storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listRecords(c *gin.Context) {
	kind, err := store.ParseKind(c.Param("kind"))
	if err != nil {
		storeError(c, err)
		return
	}
	recs, err := h.svc.Store.ListByRoom(c.Request.Context(), kind, c.Param("code"))
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *handlers) issueToken(c *gin.Context) {
	if h.svc.Tokens == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token issuing disabled"})
		return
	}
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DisplayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid displayName"})
		return
	}
	token, id, err := h.svc.Tokens.Issue(req.UserID, req.DisplayName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token, Identity: id})
}

func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidKind), errors.Is(err, store.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("store failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
