package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/LovationAdmin/family-budget-api/events"
	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/utils"
)

const (
	familyKey = "family_id"
	userKey   = "user_id"
)

// FamilyReader loads a family on behalf of a member.
type FamilyReader interface {
	Get(ctx context.Context, userID, familyID string) (*models.FamilyDetail, error)
}

// FamilyHub pushes events to websocket clients. Each session watches one
// family and receives its events plus the personal events of its user.
type FamilyHub struct {
	m        *melody.Melody
	families FamilyReader
	logger   *slog.Logger
}

func NewFamilyHub(families FamilyReader, logger *slog.Logger) *FamilyHub {
	m := melody.New()
	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-alive for hosts that drop idle connections.
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &FamilyHub{m: m, families: families, logger: utils.Component(logger, "ws")}

	m.HandleConnect(func(s *melody.Session) {
		familyID, _ := s.Get(familyKey)
		userID, _ := s.Get(userKey)
		h.logger.Info("client connected", utils.FieldFamilyID, familyID, utils.FieldUserID, userID)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		familyID, _ := s.Get(familyKey)
		h.logger.Info("client disconnected", utils.FieldFamilyID, familyID)
	})
	m.HandleError(func(s *melody.Session, err error) {
		h.logger.Warn("websocket error", utils.FieldError, err)
	})

	return h
}

// HandleWS upgrades the request after checking the caller is a member.
func (h *FamilyHub) HandleWS(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	familyID := c.Param("id")

	if _, err := h.families.Get(c.Request.Context(), userID, familyID); err != nil {
		respondError(c, err)
		return
	}

	err := h.m.HandleRequestWithKeys(c.Writer, c.Request, map[string]any{
		familyKey: familyID,
		userKey:   userID,
	})
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", utils.FieldError, err)
		if !c.Writer.Written() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "websocket upgrade failed"})
		}
	}
}

func sessionValue(s *melody.Session, key string) string {
	v, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// recipient reports whether s should receive e.
func recipient(s *melody.Session, e events.Event) bool {
	if e.FamilyID != "" {
		return sessionValue(s, familyKey) == e.FamilyID
	}
	return sessionValue(s, userKey) == e.UserID
}

// Publish implements events.Publisher. Sessions of a deleted family, and
// of a member removed from it, are closed after the broadcast.
func (h *FamilyHub) Publish(_ context.Context, e events.Event) error {
	if h.m.IsClosed() {
		return nil
	}

	msg, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := h.m.BroadcastFilter(msg, func(s *melody.Session) bool { return recipient(s, e) }); err != nil {
		return err
	}

	switch e.Type {
	case events.FamilyDeleted:
		h.closeWhere(func(s *melody.Session) bool { return sessionValue(s, familyKey) == e.FamilyID })
	case events.FamilyMemberRemoved:
		h.closeWhere(func(s *melody.Session) bool {
			return sessionValue(s, familyKey) == e.FamilyID && sessionValue(s, userKey) == e.EntityID
		})
	}
	return nil
}

func (h *FamilyHub) closeWhere(match func(*melody.Session) bool) {
	sessions, err := h.m.Sessions()
	if err != nil {
		return
	}
	for _, s := range sessions {
		if match(s) {
			_ = s.Close()
		}
	}
}

func (h *FamilyHub) Close() error {
	return h.m.Close()
}

var _ events.Publisher = (*FamilyHub)(nil)
