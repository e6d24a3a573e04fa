package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpdomain "flipnote.app/cli/internal/core/domain/http"
	httpinfra "flipnote.app/cli/internal/infrastructure/http"
	"flipnote.app/cli/test/testutil"
)

func TestHTTPTokenProvider_RefreshAccessToken(t *testing.T) {
	tests := []struct {
		name         string
		failRefresh  bool
		useIssued    bool
		expectErr    bool
		expectStatus int
	}{
		{name: "valid refresh token", useIssued: true},
		{name: "unknown refresh token", expectErr: true, expectStatus: 401},
		{name: "backend rejects refresh", useIssued: true, failRefresh: true, expectErr: true, expectStatus: 401},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			server := testutil.NewMockAPIServer(t).Build()
			server.SetRefreshFailure(tc.failRefresh)
			refresh := "refresh-unknown"
			if tc.useIssued {
				_, refresh = server.IssueTokens()
			}
			provider := NewHTTPTokenProvider(
				httpdomain.BackendEndpoint{BaseURL: server.URL},
				httpinfra.NewStdHttpRequester(5*time.Second, nil),
			)

			// Execute
			access, err := provider.RefreshAccessToken(context.Background(), refresh)

			// Verify
			assert.Equal(t, 1, server.RefreshCount())
			if tc.expectErr {
				require.Error(t, err)
				assert.Equal(t, tc.expectStatus, httpdomain.StatusCode(err))
				assert.Empty(t, access)
				return
			}
			require.NoError(t, err)
			assert.True(t, server.IsAccessValid(access))

			req := server.GetLastRequest(RefreshPath)
			require.NotNil(t, req)
			assert.Empty(t, req.Authorization)
			assert.JSONEq(t, `{"refresh":"`+refresh+`"}`, string(req.Body))
		})
	}
}

func TestHTTPTokenProvider_NetworkError(t *testing.T) {
	provider := NewHTTPTokenProvider(
		httpdomain.BackendEndpoint{BaseURL: "http://127.0.0.1:1"},
		httpinfra.NewStdHttpRequester(time.Second, nil),
	)

	_, err := provider.RefreshAccessToken(context.Background(), "r1")

	var netErr *httpdomain.NetworkError
	assert.ErrorAs(t, err, &netErr)
}
