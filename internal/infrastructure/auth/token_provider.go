package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"flipnote.app/cli/internal/core/domain"
	httpdomain "flipnote.app/cli/internal/core/domain/http"
	"flipnote.app/cli/internal/core/ports"
	httpports "flipnote.app/cli/internal/core/ports/http"
)

// RefreshPath is the backend's token refresh endpoint.
const RefreshPath = "/auth/token/refresh/"

// HTTPTokenProvider calls the refresh endpoint directly on the transport.
// It deliberately bypasses the backend client so a 401 from the refresh
// endpoint can never start another refresh.
type HTTPTokenProvider struct {
	endpoint  httpdomain.BackendEndpoint
	requester httpports.HttpRequester
}

// NewHTTPTokenProvider creates a token provider on top of a raw requester
func NewHTTPTokenProvider(endpoint httpdomain.BackendEndpoint, requester httpports.HttpRequester) *HTTPTokenProvider {
	return &HTTPTokenProvider{endpoint: endpoint, requester: requester}
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (p *HTTPTokenProvider) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	resp, err := p.requester.Do(ctx, p.endpoint, httpdomain.RequestContext{
		Method:      "POST",
		Path:        RefreshPath,
		Body:        body,
		ContentType: "application/json",
	})
	if err != nil {
		return "", &httpdomain.NetworkError{Method: "POST", Path: RefreshPath, Err: err}
	}
	if !resp.OK() {
		return "", httpdomain.NewAPIError("POST", RefreshPath, resp)
	}

	var refreshResp domain.RefreshResponse
	if err := json.Unmarshal(resp.Body, &refreshResp); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if refreshResp.Access == "" {
		return "", fmt.Errorf("refresh response carried no access token")
	}
	return refreshResp.Access, nil
}

var _ ports.TokenProvider = (*HTTPTokenProvider)(nil)
