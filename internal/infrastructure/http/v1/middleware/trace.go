package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/id"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// maxForwardedID bounds client-supplied IDs, which are copied onto every
// backend call.
const maxForwardedID = 64

// Trace attaches the request and trace IDs to the request context. The
// request ID is forwarded to the backend on every upstream call, so a
// client-supplied value is kept only when it is a plain token; anything
// else is replaced. An active span's trace ID takes precedence over the
// header.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := forwardable(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = id.New().String()
		}

		traceID := ""
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else if traceID = forwardable(c.GetHeader(HeaderTraceID)); traceID == "" {
			traceID = id.New().String()
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), &appctx.TraceContext{
			TraceID:   traceID,
			RequestID: requestID,
		}))
		c.Set("request_id", requestID)

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

// forwardable returns v when it is a non-empty ID made of letters, digits,
// '-', '_' or '.', and "" otherwise.
func forwardable(v string) string {
	if v == "" || len(v) > maxForwardedID {
		return ""
	}
	for i := 0; i < len(v); i++ {
		ch := v[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return ""
		}
	}
	return v
}
