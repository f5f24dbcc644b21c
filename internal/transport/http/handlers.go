package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Doubts/internal/app"
	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Store core.Store
	Rooms *app.Directory
}

type SignInRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SignInResponse struct {
	User *domain.User `json:"user"`
}

type DoubtsResponse struct {
	Doubts []domain.Doubt `json:"doubts"`
}

func (h *Handlers) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid body"})
		return
	}
	email, err := domain.ValidateSignIn(req.Name, req.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.Store.CreateUser(c.Request.Context(), req.Name, email)
	if err != nil {
		log.Error().Err(err).Str("module", "http").Str("email", email).Msg("sign in")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign in"})
		return
	}

	sess := sessions.Default(c)
	sess.Set(core.SessionEmailKey, email)
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "http").Msg("session save")
	}
	c.JSON(http.StatusOK, SignInResponse{User: user})
}

func (h *Handlers) AllDoubts(c *gin.Context) {
	h.listDoubts(c, core.AllDoubts)
}

func (h *Handlers) AnsweredDoubts(c *gin.Context) {
	h.listDoubts(c, core.AnsweredOnly)
}

func (h *Handlers) listDoubts(c *gin.Context, filter core.DoubtFilter) {
	room := domain.RoomID(c.Query("roomId"))
	if !domain.ValidRoomID(room) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}
	doubts, err := h.Store.ListDoubts(c.Request.Context(), room, filter)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		log.Error().Err(err).Str("module", "http").Str("room", string(room)).Msg("list doubts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load doubts"})
		return
	}
	if doubts == nil {
		doubts = []domain.Doubt{}
	}
	c.JSON(http.StatusOK, DoubtsResponse{Doubts: doubts})
}

func (h *Handlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Rooms.List()})
}

func (h *Handlers) Health(c *gin.Context) {
	c.Status(http.StatusOK)
}
