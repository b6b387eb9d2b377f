package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, zap.NewNop()), srv
}

func TestUnauthorizedDiscardsTokenAndFiresHook(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	client.SetToken("stale-token")

	hookFired := false
	client.OnAuthFailure(func() { hookFired = true })

	_, err := client.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, hookFired)
	assert.Empty(t, client.Token())
}

func TestForbiddenTreatedLikeUnauthorized(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	client.SetToken("stale-token")

	_, err := client.AskDB(context.Background(), "select something")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, client.Token())
}

func TestBearerHeaderAttached(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	client.SetToken("tok-123")

	_, err := client.AskPDF(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestChatReturnsStreamBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "hello", body["message"])

		flusher := w.(http.Flusher)
		io.WriteString(w, "Hi")
		flusher.Flush()
		io.WriteString(w, " there")
	}))

	body, err := client.Chat(context.Background(), "hello")
	require.NoError(t, err)
	defer body.Close()

	all, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", string(all))
}

func TestAskDBDecodesTableReply(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ask-db", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"summary": "3 rows found",
			"rows":    []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}},
		})
	}))

	reply, err := client.AskDB(context.Background(), "how many users")
	require.NoError(t, err)
	assert.Equal(t, "3 rows found", reply.Summary)
	assert.Len(t, reply.Rows, 3)
}

func TestGeneratePrompts(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "the answer", body["text"])
		json.NewEncoder(w).Encode(map[string]any{"prompts": []string{"follow up?"}})
	}))

	prompts, err := client.GeneratePrompts(context.Background(), "the answer")
	require.NoError(t, err)
	assert.Equal(t, []string{"follow up?"}, prompts)
}

func TestLoginStoresToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"token": "fresh-token"})
	}))

	token, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, "fresh-token", client.Token())
}

func TestRegisterSendsAccountFields(t *testing.T) {
	var got map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/register", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&got)
	}))

	err := client.Register(context.Background(), "bob", "hunter2", "Bob B")
	require.NoError(t, err)
	assert.Equal(t, "bob", got["username"])
	assert.Equal(t, "hunter2", got["password"])
	assert.Equal(t, "Bob B", got["display_name"])
}

func TestCuratedInsightsDecodesReports(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/curated-insights", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode([]map[string]any{{
			"title":       "Top customers",
			"description": "By revenue",
			"columns":     []string{"name", "revenue"},
			"rows":        []map[string]any{{"name": "Acme", "revenue": 100}},
		}})
	}))

	list, err := client.CuratedInsights(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Top customers", list[0].Title)
	assert.Equal(t, []string{"name", "revenue"}, list[0].Columns)
	assert.Len(t, list[0].Rows, 1)
}

func TestServerErrorSurfacesStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.GenerateOutline(context.Background(), "text")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestExportOutlinePPTFixedFilename(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x50, 0x4b, 0x03, 0x04})
	}))

	blob, err := client.ExportOutlinePPT(context.Background(), "1. Intro")
	require.NoError(t, err)
	assert.Equal(t, "outline.pptx", blob.Filename)
	assert.NotEmpty(t, blob.Data)
}
