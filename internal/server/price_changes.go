package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/pricesync/internal/audit/domain"
	lifecycledomain "github.com/smallbiznis/pricesync/internal/lifecycle/domain"
	"github.com/smallbiznis/pricesync/pkg/db/pagination"
	"github.com/smallbiznis/pricesync/pkg/telemetry/correlation"
)

type listPriceChangesQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Status    string `form:"status"`
}

type listAuditsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Action    string `form:"action"`
}

type transitionFunc func(ctx context.Context, req lifecycledomain.Request) (*lifecycledomain.PriceChange, error)

func (s *Server) ApprovePriceChange(c *gin.Context) {
	s.runTransition(c, s.lifecycleSvc.Approve)
}

func (s *Server) RejectPriceChange(c *gin.Context) {
	s.runTransition(c, s.lifecycleSvc.Reject)
}

func (s *Server) ApplyPriceChange(c *gin.Context) {
	s.runTransition(c, s.lifecycleSvc.Apply)
}

func (s *Server) RollbackPriceChange(c *gin.Context) {
	s.runTransition(c, s.lifecycleSvc.Rollback)
}

func (s *Server) runTransition(c *gin.Context, fn transitionFunc) {
	scope, ok := scopeFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	out, err := fn(c.Request.Context(), lifecycledomain.Request{
		ProjectID:     scope.Project.ID,
		PriceChangeID: strings.TrimSpace(c.Param("id")),
		Actor:         scope.UserID,
		CorrelationID: correlation.ExtractCorrelationID(c.Request.Context()),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": out})
}

func (s *Server) GetPriceChange(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	out, err := s.lifecycleSvc.Get(c.Request.Context(), scope.Project.ID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": out})
}

func (s *Server) ListPriceChanges(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listPriceChangesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.lifecycleSvc.List(c.Request.Context(), lifecycledomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		ProjectID: scope.Project.ID,
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": resp})
}

func (s *Server) ListPriceChangeAudits(c *gin.Context) {
	scope, ok := scopeFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listAuditsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// Ownership check before exposing the trail.
	id := strings.TrimSpace(c.Param("id"))
	if _, err := s.lifecycleSvc.Get(c.Request.Context(), scope.Project.ID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		ProjectID: scope.Project.ID,
		Entity:    auditdomain.EntityPriceChange,
		EntityID:  id,
		Action:    strings.TrimSpace(query.Action),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": resp})
}
