package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
)

func init() { gin.SetMode(gin.TestMode) }

type stubParser struct {
	user *appctx.UserContext
	err  error
}

func (p stubParser) Parse(string) (*appctx.UserContext, error) { return p.user, p.err }

func newEngine(handler gin.HandlerFunc, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), Trace(), ErrorHandler())
	r.Use(extra...)
	r.GET("/x", handler)
	return r
}

func serve(t *testing.T, r *gin.Engine, header http.Header) (*httptest.ResponseRecorder, ErrorBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body ErrorBody
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(apperror.NewInvalidState("CONFIRMING", "edit header"))
	})
	w, body := serve(t, r, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeInvalidState, body.Code)
	assert.Equal(t, "CONFIRMING", body.Details["state"])
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp: connection refused"))
	})
	w, body := serve(t, r, http.Header{HeaderRequestID: {"req-9"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body.Code)
	assert.Equal(t, "Internal server error", body.Message)
	assert.Equal(t, "req-9", body.Details["request_id"])
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	r := newEngine(func(c *gin.Context) { panic("boom") })
	w, body := serve(t, r, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestTrace_KeepsIncomingRequestID(t *testing.T) {
	var seen string
	r := newEngine(func(c *gin.Context) {
		seen = appctx.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	w, _ := serve(t, r, http.Header{HeaderRequestID: {"req-1"}})
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
}

func TestTrace_ReplacesUnsafeIncomingIDs(t *testing.T) {
	var seen *appctx.TraceContext
	r := newEngine(func(c *gin.Context) {
		seen = appctx.GetTrace(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	long := strings.Repeat("a", 65)
	for _, in := range []string{"req 1", "req\tinjected", long, "a/b"} {
		w, _ := serve(t, r, http.Header{HeaderRequestID: {in}, HeaderTraceID: {in}})
		require.NotNil(t, seen, in)
		assert.NotEqual(t, in, seen.RequestID, in)
		assert.NotEqual(t, in, seen.TraceID, in)
		_, err := uuid.Parse(seen.RequestID)
		assert.NoError(t, err, in)
		assert.Equal(t, seen.RequestID, w.Header().Get(HeaderRequestID))
	}

	_, _ = serve(t, r, http.Header{HeaderRequestID: {"web.form-42_a"}, HeaderTraceID: {"trace-7"}})
	assert.Equal(t, "web.form-42_a", seen.RequestID)
	assert.Equal(t, "trace-7", seen.TraceID)
}

func TestAuth(t *testing.T) {
	ok := func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		c.String(http.StatusOK, user.UserID+"|"+user.Token)
	}
	user := &appctx.UserContext{UserID: "u-1", Token: "tok"}

	tests := []struct {
		name   string
		parser stubParser
		header string
		status int
	}{
		{"missing header", stubParser{user: user}, "", http.StatusUnauthorized},
		{"wrong scheme", stubParser{user: user}, "Basic abc", http.StatusUnauthorized},
		{"parse failure", stubParser{err: errors.New("bad")}, "Bearer tok", http.StatusUnauthorized},
		{"no identity", stubParser{user: &appctx.UserContext{Token: "tok"}}, "Bearer tok", http.StatusUnauthorized},
		{"valid", stubParser{user: user}, "Bearer tok", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(ok, Auth(tt.parser))
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header = h
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u-1|tok", w.Body.String())
			}
		})
	}
}

type stubRefresher struct {
	token string
	err   error
}

func (r stubRefresher) Ensure(ctx context.Context) (context.Context, error) {
	if r.err != nil {
		return ctx, r.err
	}
	user := *appctx.GetUser(ctx)
	user.Token = r.token
	return appctx.WithUser(ctx, &user), nil
}

func TestFreshCredential(t *testing.T) {
	ok := func(c *gin.Context) { c.String(http.StatusOK, appctx.GetUser(c.Request.Context()).Token) }
	parser := stubParser{user: &appctx.UserContext{UserID: "u-1", Token: "old"}}
	header := http.Header{"Authorization": {"Bearer old"}}

	r := newEngine(ok, Auth(parser), FreshCredential(stubRefresher{token: "new"}))
	w := serveRaw(r, header)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new", w.Body.String())

	r = newEngine(ok, Auth(parser), FreshCredential(stubRefresher{err: apperror.NewUnauthorized("session expired")}))
	denied, body := serve(t, r, header)
	assert.Equal(t, http.StatusUnauthorized, denied.Code)
	assert.Equal(t, apperror.CodeUnauthorized, body.Code)
}

func serveRaw(r *gin.Engine, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header = header
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
