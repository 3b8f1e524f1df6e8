package render

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChiErr(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	ChiErr(rr, req, http.StatusTeapot, errors.New("nope"))

	require.Equal(t, http.StatusTeapot, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "nope", body["error"])
	_, hasField := body["field"]
	require.False(t, hasField)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Tool string `json:"tool"`
	}

	cases := []struct {
		name    string
		body    string
		wantErr string
		want    string
	}{
		{name: "ok", body: `{"tool":"glslangValidator"}`, want: "glslangValidator"},
		{name: "empty", body: ``, wantErr: "empty request body"},
		{name: "malformed", body: `{"tool":`, wantErr: "invalid json"},
		{name: "trailing", body: `{"tool":"a"} {"tool":"b"}`, wantErr: "trailing data"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))

			var got payload
			err := DecodeJSON(rr, req, &got)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got.Tool)
		})
	}
}
