package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/pricesync/internal/audit/domain"
	"github.com/smallbiznis/pricesync/internal/auth/session"
	"github.com/smallbiznis/pricesync/internal/authorization"
	pcdomain "github.com/smallbiznis/pricesync/internal/pricechange/domain"
	projectdomain "github.com/smallbiznis/pricesync/internal/project/domain"
	"gorm.io/gorm"
)

type errorResponse struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid_request")
)

type errorKind struct {
	name   string
	status int
}

var lifecycleKinds = map[error]errorKind{
	pcdomain.ErrProjectRequired:      {"ProjectRequired", http.StatusBadRequest},
	pcdomain.ErrBadRequest:           {"BadRequest", http.StatusBadRequest},
	pcdomain.ErrUnauthorized:         {"Unauthorized", http.StatusUnauthorized},
	pcdomain.ErrForbidden:            {"Forbidden", http.StatusForbidden},
	pcdomain.ErrNotFound:             {"NotFound", http.StatusNotFound},
	pcdomain.ErrInvalidStatus:        {"InvalidStatus", http.StatusBadRequest},
	pcdomain.ErrPolicyViolation:      {"PolicyViolation", http.StatusUnprocessableEntity},
	pcdomain.ErrMissingVariant:       {"MissingVariant", http.StatusUnprocessableEntity},
	pcdomain.ErrIntegrationMissing:   {"IntegrationMissing", http.StatusConflict},
	pcdomain.ErrConnectorUnavailable: {"ConnectorUnavailable", http.StatusBadGateway},
	pcdomain.ErrConnectorError:       {"ConnectorError", http.StatusBadGateway},
	pcdomain.ErrPriceNotFound:        {"PriceNotFound", http.StatusNotFound},
	pcdomain.ErrRollbackFailed:       {"RollbackFailed", http.StatusInternalServerError},
	pcdomain.ErrInternal:             {"InternalError", http.StatusInternalServerError},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	var le *pcdomain.Error
	if errors.As(err, &le) {
		kind, ok := lifecycleKinds[le.Kind]
		if !ok {
			kind = lifecycleKinds[pcdomain.ErrInternal]
		}
		message := le.Message
		if kind.status == http.StatusInternalServerError && message == "" {
			message = "internal server error"
		}
		return kind.status, errorResponse{
			Error:   kind.name,
			Message: message,
			Details: le.Details,
		}
	}

	kind := classify(err)
	return kind.status, errorResponse{
		Error:   kind.name,
		Message: defaultMessage(kind.status),
	}
}

// classify maps errors raised outside the lifecycle engine (middlewares,
// audit listing) onto the same kinds.
func classify(err error) errorKind {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, session.ErrSessionNotFound):
		return lifecycleKinds[pcdomain.ErrUnauthorized]
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, projectdomain.ErrNotMember):
		return lifecycleKinds[pcdomain.ErrForbidden]
	case errors.Is(err, projectdomain.ErrSlugRequired):
		return lifecycleKinds[pcdomain.ErrProjectRequired]
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, projectdomain.ErrInvalidSlug),
		errors.Is(err, auditdomain.ErrInvalidPageToken):
		return lifecycleKinds[pcdomain.ErrBadRequest]
	case errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return lifecycleKinds[pcdomain.ErrNotFound]
	}
	if kind := pcdomain.KindOf(err); kind != nil {
		if k, ok := lifecycleKinds[kind]; ok {
			return k
		}
	}
	return lifecycleKinds[pcdomain.ErrInternal]
}

func defaultMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not found"
	case http.StatusBadRequest:
		return "invalid request"
	default:
		return "internal server error"
	}
}

// classifyErrorForLog feeds the request logger: error type plus a stable
// code, never the raw message.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server", payload.Error
	default:
		return "client", payload.Error
	}
}
