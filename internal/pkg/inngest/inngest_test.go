package inngest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"glslang-runner/config"
)

func TestNewInngestClient_DisabledWithoutAppID(t *testing.T) {
	c, err := NewInngestClient(&config.Config{})
	require.NoError(t, err)

	_, err = c.Send(context.Background(), map[string]any{"name": "toolchain/run.requested"})
	require.ErrorIs(t, err, ErrInngestDisabled)

	rr := httptest.NewRecorder()
	c.Serve().ServeHTTP(rr, httptest.NewRequest(http.MethodPut, DefaultServePath, nil))
	require.Equal(t, http.StatusNotImplemented, rr.Code)
	require.Contains(t, rr.Body.String(), "INNGEST_APP_ID")
}
