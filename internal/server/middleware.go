package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pricesync/internal/auth/session"
	"github.com/smallbiznis/pricesync/internal/authorization"
	obscontext "github.com/smallbiznis/pricesync/internal/observability/context"
	projectdomain "github.com/smallbiznis/pricesync/internal/project/domain"
	"github.com/smallbiznis/pricesync/pkg/telemetry/correlation"
)

const (
	HeaderCorrelationID = "X-Correlation-Id"

	contextUserIDKey = "user_id"
	contextScopeKey  = "project_scope"
)

// Correlation honours an inbound X-Correlation-Id or mints one, and echoes
// it on the response.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := correlation.ContextWithCorrelationID(c.Request.Context(), strings.TrimSpace(c.GetHeader(HeaderCorrelationID)))
		ctx, id := correlation.EnsureCorrelationID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderCorrelationID, id)
		c.Next()
	}
}

func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := s.sessions.Resolve(c)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				err = ErrUnauthorized
			}
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, sess.UserID)
		c.Request = c.Request.WithContext(obscontext.WithActorID(c.Request.Context(), sess.UserID))
		c.Next()
	}
}

// ProjectContext resolves :slug for the signed-in user.
func (s *Server) ProjectContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(contextUserIDKey)
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		scope, err := s.projects.Resolve(c.Request.Context(), c.Param("slug"), userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextScopeKey, scope)
		c.Request = c.Request.WithContext(obscontext.WithProjectID(c.Request.Context(), scope.Project.ID))
		c.Next()
	}
}

func (s *Server) authorize(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := scopeFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		err := s.authzSvc.Authorize(c.Request.Context(), authorization.Request{
			ProjectID: scope.Project.ID,
			Actor:     scope.UserID,
			Role:      scope.Role,
			Object:    authorization.ObjectPriceChange,
			ObjectID:  strings.TrimSpace(c.Param("id")),
			Action:    action,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func scopeFromContext(c *gin.Context) (*projectdomain.Scope, bool) {
	value, ok := c.Get(contextScopeKey)
	if !ok {
		return nil, false
	}
	scope, ok := value.(*projectdomain.Scope)
	return scope, ok && scope != nil
}
