// Package upstream is the client of the backend REST API. Every call
// forwards the caller's bearer token and unwraps the {success, message,
// data} envelope.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
	"formdesk/pkg/logger"
)

var tracer = otel.Tracer("formdesk/upstream")

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

// Envelope is the backend response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Config configures the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client. A nil hc uses a client bounded by cfg.Timeout.
func New(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/"), http: hc}
}

// call issues one request and decodes the envelope data into out (when
// non-nil). It returns the envelope message.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out any) (string, error) {
	ctx, span := tracer.Start(ctx, "upstream."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		))
	defer span.End()

	msg, status, err := c.do(ctx, method, path, query, body, out)
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn(ctx, "upstream call failed", "op", op, "status", status, "error", err)
	}
	return msg, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (string, int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return "", 0, apperror.NewInternal(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return "", 0, apperror.NewInternal(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := appctx.GetToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if rid := appctx.GetRequestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		return "", 0, apperror.NewUpstream(0, "Backend unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", resp.StatusCode, apperror.NewUpstream(resp.StatusCode, "Backend response could not be read").WithCause(err)
	}

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(env.Message)
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return msg, resp.StatusCode, apperror.NewUnauthorized(msg)
		}
		if resp.StatusCode == http.StatusNotFound {
			return msg, resp.StatusCode, apperror.NewUpstream(resp.StatusCode, msg).WithDetail("not_found", true)
		}
		return msg, resp.StatusCode, apperror.NewUpstream(resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", resp.StatusCode, apperror.NewUpstream(resp.StatusCode, "Backend returned malformed JSON").WithCause(decodeErr)
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = "Backend rejected the request"
		}
		return msg, resp.StatusCode, apperror.NewUpstream(resp.StatusCode, msg)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env.Message, resp.StatusCode, apperror.NewUpstream(resp.StatusCode, "Backend returned unexpected data").
				WithCause(fmt.Errorf("decode data: %w", err))
		}
	}
	return env.Message, resp.StatusCode, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	_, err := c.call(ctx, op, http.MethodGet, path, query, nil, out)
	return err
}
