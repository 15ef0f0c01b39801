package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/pricesync/internal/observability/context"
	"github.com/smallbiznis/pricesync/pkg/telemetry/correlation"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request. Probes are not traced.
func GinMiddleware(service string) gin.HandlerFunc {
	return otelgin.Middleware(service,
		otelgin.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	)
}

// Annotate tags the request span with pricesync identifiers once the handler
// chain has run, and records the last handler error on 5xx responses.
func Annotate() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(SafeAttributes(
			attribute.String("request_id", obscontext.RequestIDFromContext(ctx)),
			attribute.String("correlation_id", correlation.ExtractCorrelationID(ctx)),
			attribute.String("project_id", obscontext.ProjectIDFromContext(ctx)),
		)...)
		if c.Writer.Status() >= http.StatusInternalServerError {
			if last := c.Errors.Last(); last != nil {
				span.RecordError(SafeError(last.Err))
			}
		}
	}
}
