package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passport/internal/platform/actortoken"
	id "passport/pkg/domain"
	"passport/pkg/platform/middleware/metadata"
	"passport/pkg/platform/middleware/request"
	"passport/pkg/requestcontext"
)

func TestRequireActor(t *testing.T) {
	tokens := actortoken.New("secret", "passport", "passport-api")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var (
		gotUser id.UserID
		gotRole string
		gotReq  string
	)
	handler := request.RequestID(RequireActor(tokens, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = requestcontext.UserID(r.Context())
		gotRole = requestcontext.Role(r.Context())
		gotReq = requestcontext.RequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("valid token populates the actor", func(t *testing.T) {
		userID := id.UserID(uuid.New())
		token, err := tokens.Issue(userID, "owner", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(request.HeaderRequestID, "req-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, userID, gotUser)
		assert.Equal(t, "owner", gotRole)
		assert.Equal(t, "req-1", gotReq)
		assert.Equal(t, "req-1", w.Header().Get(request.HeaderRequestID))
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"unauthorized"`)
		assert.NotEmpty(t, w.Header().Get(request.HeaderRequestID))
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireActorLogsClientOnRejection(t *testing.T) {
	tokens := actortoken.New("secret", "passport", "passport-api")
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := metadata.ClientMetadata(RequireActor(tokens, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("rejected requests must not reach the handler")
	})))

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{"missing token", "", "unauthorized access - missing token"},
		{"invalid token", "Bearer nope", "unauthorized access - invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.7:52100"
			req.Header.Set("User-Agent", "passport-ios/3.2")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			require.Equal(t, http.StatusUnauthorized, w.Code)

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.msg, line["msg"])
			assert.Equal(t, "203.0.113.7", line["client_ip"])
			assert.Equal(t, "passport-ios/3.2", line["user_agent"])
		})
	}
}
