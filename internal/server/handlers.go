package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/profile"
)

type credentials struct {
	UID      string `json:"uid"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type randomRequest struct {
	Difficulty int `json:"difficulty"`
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	svc := s.newProfileService()
	ok, err := svc.RegisterAndLogin(c.Request.Context(), req.UID, req.Password, req.Nickname)
	switch {
	case err != nil:
		s.authError(c, err)
	case !ok:
		c.JSON(http.StatusConflict, gin.H{"error": profile.MsgUIDTaken})
	default:
		sess := s.startSession(svc)
		c.JSON(http.StatusCreated, gin.H{"token": sess.token, "message": profile.MsgRegistered, "profile": svc.Current()})
	}
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	svc := s.newProfileService()
	ok, err := svc.Login(c.Request.Context(), req.UID, req.Password)
	switch {
	case err != nil:
		s.authError(c, err)
	case !ok:
		c.JSON(http.StatusUnauthorized, gin.H{"error": profile.MsgBadCredentials})
	default:
		sess := s.startSession(svc)
		c.JSON(http.StatusOK, gin.H{"token": sess.token, "profile": svc.Current()})
	}
}

func (s *Server) authError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if !errors.Is(err, profile.ErrMissingCredentials) && !errors.Is(err, profile.ErrMissingNickname) {
		status = http.StatusInternalServerError
		s.logger.Printf("server: auth failed: %v", err)
	}
	c.JSON(status, gin.H{"error": profile.UserMessage(err)})
}

func (s *Server) logout(c *gin.Context) {
	sess := currentSession(c)
	sess.end()
	s.sessions.remove(sess.token)
	c.Status(http.StatusNoContent)
}

func (s *Server) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).profile.Current())
}

func (s *Server) getBattle(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).engine.Snapshot())
}

func (s *Server) startFixed(c *gin.Context) {
	level, err := strconv.Atoi(c.Param("level"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "关卡编号无效"})
		return
	}
	engine := currentSession(c).engine
	if err := engine.StartFixedLevel(c.Request.Context(), level); err != nil {
		s.battleError(c, err)
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

func (s *Server) startRandom(c *gin.Context) {
	var req randomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	engine := currentSession(c).engine
	if _, err := engine.StartGenerated(c.Request.Context(), req.Difficulty); err != nil {
		s.battleError(c, err)
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

func (s *Server) playCard(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "卡牌序号无效"})
		return
	}
	engine := currentSession(c).engine
	if err := engine.PlayCard(c.Request.Context(), index); err != nil {
		s.battleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, engine.Snapshot())
}

func (s *Server) flee(c *gin.Context) {
	engine := currentSession(c).engine
	engine.Flee()
	c.JSON(http.StatusOK, engine.Snapshot())
}

func (s *Server) reset(c *gin.Context) {
	engine := currentSession(c).engine
	engine.ResetToDashboard()
	c.JSON(http.StatusOK, engine.Snapshot())
}

// battleError maps engine guard errors to status codes.
func (s *Server) battleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, battle.ErrInvalidLevel), errors.Is(err, battle.ErrInvalidCard):
		status = http.StatusBadRequest
	case errors.Is(err, battle.ErrLevelLocked):
		status = http.StatusForbidden
	case errors.Is(err, battle.ErrNoProfile):
		status = http.StatusUnauthorized
	case errors.Is(err, battle.ErrNoBattle):
		status = http.StatusNotFound
	case errors.Is(err, battle.ErrBusy), errors.Is(err, battle.ErrBattleOver), errors.Is(err, battle.ErrPlayerDown):
		status = http.StatusConflict
	default:
		s.logger.Printf("server: battle request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
