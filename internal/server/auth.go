package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type devSessionRequest struct {
	UserID string `json:"user_id"`
}

// CreateDevSession issues a session for any user id. Registered outside
// production only; real sessions are written to the shared store by the
// identity service.
func (s *Server) CreateDevSession(c *gin.Context) {
	var req devSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sess, err := s.sessions.Issue(c.Request.Context(), strings.TrimSpace(req.UserID))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sessions.Set(c, sess.Token, sess.ExpiresAt)

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": gin.H{
		"token":      sess.Token,
		"user_id":    sess.UserID,
		"expires_at": sess.ExpiresAt,
	}})
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		if err := s.sessions.Revoke(c.Request.Context(), token); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
