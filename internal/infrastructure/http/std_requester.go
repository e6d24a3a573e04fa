package httpinfra

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	httpdomain "flipnote.app/cli/internal/core/domain/http"
	httpports "flipnote.app/cli/internal/core/ports/http"
)

// StdHttpRequester performs one round trip per call. It never retries:
// replay after a refresh is the backend client's job.
type StdHttpRequester struct {
	client *http.Client
	logger hclog.Logger
}

// NewStdHttpRequester creates a requester. A zero timeout leaves the
// transport defaults in place.
func NewStdHttpRequester(timeout time.Duration, logger hclog.Logger) *StdHttpRequester {
	return NewStdHttpRequesterWithClient(&http.Client{Timeout: timeout}, logger)
}

// NewStdHttpRequesterWithClient wraps an existing *http.Client
func NewStdHttpRequesterWithClient(client *http.Client, logger hclog.Logger) *StdHttpRequester {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &StdHttpRequester{client: client, logger: logger.Named("transport")}
}

func (r *StdHttpRequester) Do(ctx context.Context, endpoint httpdomain.BackendEndpoint, req httpdomain.RequestContext) (*httpdomain.Response, error) {
	fullURL, err := endpoint.URL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if endpoint.UserAgent != "" {
		httpReq.Header.Set("User-Agent", endpoint.UserAgent)
	}
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		r.logger.Debug("request failed", "method", req.Method, "path", req.Path, "request_id", requestID, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("request completed",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	return &httpdomain.Response{Status: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

var _ httpports.HttpRequester = (*StdHttpRequester)(nil)
