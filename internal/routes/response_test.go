package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	rbac "github.com/bohemiyan/tenant-rbac"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestErrorHandlerEnvelopes(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"timeout", fmt.Errorf("company 1: %w", rbac.ErrTimeout), http.StatusServiceUnavailable, "service temporarily unavailable, retry later"},
		{"unauthenticated", rbac.ErrUnauthenticated, http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", fmt.Errorf("read.company: %w", rbac.ErrForbidden), http.StatusForbidden, "You are not authorized to access this resource"},
		{"not found", fmt.Errorf("company 9: %w", rbac.ErrNotFound), http.StatusNotFound, "Resource not found"},
		{"duplicate", fmt.Errorf("create user: %w", rbac.ErrDuplicateKey), http.StatusUnprocessableEntity, "resource already exists"},
		{"configuration", fmt.Errorf("role missing: %w", rbac.ErrConfiguration), http.StatusInternalServerError, "Internal Server Error"},
		{"provisioning", fmt.Errorf("%w: boom", rbac.ErrProvisioningFailed), http.StatusInternalServerError, "Internal Server Error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop().Sugar())})
			app.Get("/", func(*fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			var env envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.status, env.StatusCode)
			assert.Equal(t, tc.message, env.StatusMessage)
			assert.JSONEq(t, `{}`, string(env.Data))
		})
	}
}

func TestTimeoutIsRetryable(t *testing.T) {
	err := fmt.Errorf("list companies: %w", rbac.ErrTimeout)
	assert.True(t, rbac.IsRetryable(err))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(err))
	assert.False(t, rbac.IsRetryable(rbac.ErrNotFound))
}
