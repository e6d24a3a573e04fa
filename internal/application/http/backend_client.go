package apphttp

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	httpdomain "flipnote.app/cli/internal/core/domain/http"
	httpports "flipnote.app/cli/internal/core/ports/http"
	httpinfra "flipnote.app/cli/internal/infrastructure/http"
)

// Request is one logical backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// JSON is marshalled as the request body when set.
	JSON interface{}
	// Body and ContentType carry a pre-encoded body, e.g. multipart.
	Body        []byte
	ContentType string
	// Public requests carry no Authorization header and never trigger a refresh.
	Public bool
	// Token overrides the stored access token; such requests never trigger a
	// refresh either, since the store does not hold that token yet.
	Token string
}

// BackendClient is the single chokepoint for backend calls. It attaches the
// Authorization header and, on a 401, waits for the refresh coordinator and
// replays the request exactly once.
type BackendClient struct {
	endpoint     httpdomain.BackendEndpoint
	requester    httpports.HttpRequester
	authProvider httpports.AuthHeaderProvider
	refresher    httpports.TokenRefresher
	logger       hclog.Logger
}

func NewBackendClient(endpoint httpdomain.BackendEndpoint, requester httpports.HttpRequester, auth httpports.AuthHeaderProvider, refresher httpports.TokenRefresher, logger hclog.Logger) *BackendClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &BackendClient{
		endpoint:     endpoint,
		requester:    requester,
		authProvider: auth,
		refresher:    refresher,
		logger:       logger.Named("client"),
	}
}

// NewBackendClientWithTimeout builds the client on a standard requester
func NewBackendClientWithTimeout(baseURL, userAgent string, timeout time.Duration, auth httpports.AuthHeaderProvider, refresher httpports.TokenRefresher, logger hclog.Logger) *BackendClient {
	return NewBackendClient(
		httpdomain.BackendEndpoint{BaseURL: baseURL, UserAgent: userAgent},
		httpinfra.NewStdHttpRequester(timeout, logger),
		auth,
		refresher,
		logger,
	)
}

// Endpoint returns the backend target
func (c *BackendClient) Endpoint() httpdomain.BackendEndpoint { return c.endpoint }

// Do issues req and returns the 2xx response, an *APIError for any other
// status, or a *NetworkError when no response arrived.
func (c *BackendClient) Do(ctx context.Context, req Request) (*httpdomain.Response, error) {
	body, contentType := req.Body, req.ContentType
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s %s body: %w", req.Method, req.Path, err)
		}
		body, contentType = data, "application/json"
	}

	refreshable := !req.Public && req.Token == "" && c.refresher != nil
	if refreshable {
		if err := c.refresher.EnsureFresh(ctx); err != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
		}
	}

	requestID := uuid.NewString()
	resp, sentToken, err := c.send(ctx, req, body, contentType, requestID, req.Token)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized && refreshable {
		c.logger.Debug("received 401, refreshing", "method", req.Method, "path", req.Path, "request_id", requestID)
		access, refreshErr := c.refresher.Refresh(ctx, sentToken)
		if refreshErr != nil {
			apiErr := httpdomain.NewAPIError(req.Method, req.Path, resp)
			apiErr.Err = refreshErr
			return nil, apiErr
		}

		// Replayed once; whatever comes back is final.
		resp, _, err = c.send(ctx, req, body, contentType, requestID, access)
		if err != nil {
			return nil, err
		}
	}

	if !resp.OK() {
		return nil, httpdomain.NewAPIError(req.Method, req.Path, resp)
	}
	return resp, nil
}

// DoJSON issues req and decodes a JSON response into out (if non-nil).
func (c *BackendClient) DoJSON(ctx context.Context, req Request, out interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}

func (c *BackendClient) send(ctx context.Context, req Request, body []byte, contentType, requestID, token string) (*httpdomain.Response, string, error) {
	headers := map[string]string{"Accept": "application/json"}
	if !req.Public {
		maps.Copy(headers, c.authProvider.Headers(ctx, token))
	}
	sentToken := TokenFromHeader(headers["Authorization"])

	resp, err := c.requester.Do(ctx, c.endpoint, httpdomain.RequestContext{
		Method:      req.Method,
		Path:        req.Path,
		Query:       req.Query,
		Headers:     headers,
		Body:        body,
		ContentType: contentType,
		RequestID:   requestID,
	})
	if err != nil {
		return nil, sentToken, &httpdomain.NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	return resp, sentToken, nil
}
