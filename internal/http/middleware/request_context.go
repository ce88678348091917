package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/ballot-consensus-backend/internal/pkg/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachRequestContext stores request and trace ids on the request context and echoes
// them back as response headers.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		traceID := ""
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			RequestID: reqID,
			TraceID:   traceID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerRequestID, reqID)
		if traceID != "" {
			c.Writer.Header().Set(headerTraceID, traceID)
		}
		c.Next()
	}
}
