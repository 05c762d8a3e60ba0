package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatrelay/pkg/api"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	assert.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_Register(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/user/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		assert.Equal(t, "h1", req.Hostname)
		assert.NotEmpty(t, req.UserPubK)

		w.Header().Set(HeaderAuth, "issued-token")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.RegisterResponse{
			Status:  "ok",
			UID:     "uid-123",
			SrvPubK: "custody-pem",
			Login:   "alice@h1",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, tok, err := client.Register(context.Background(), api.RegisterRequest{
		Username: "alice",
		Hostname: "h1",
		Password: "password123",
		UserPubK: "client-pem",
	})

	require.NoError(t, err)
	assert.Equal(t, "issued-token", tok)
	assert.Equal(t, "uid-123", resp.UID)
	assert.Equal(t, "alice@h1", resp.Login)
}

func TestClient_TokenHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bearer-token", r.Header.Get(HeaderAuth))
		assert.Equal(t, "/api/chat/list", r.URL.Path)

		_ = json.NewEncoder(w).Encode(api.ListChatsResponse{Status: "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("bearer-token")

	resp, err := client.ListChats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Chats)
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "can't create second chat with user"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.NewChat(context.Background(), api.NewChatRequest{
		DestUsername: "bob", DestHostname: "h1", EncAES: "wrapped",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't create second chat with user")
	assert.Contains(t, err.Error(), "409")
}

func TestClient_SearchQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "al", r.URL.Query().Get("username"))
		assert.Equal(t, "h", r.URL.Query().Get("hostname"))

		_ = json.NewEncoder(w).Encode(api.SearchResponse{
			Status: "ok",
			Users:  []string{"alice@h1", "alex@h1"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Search(context.Background(), "al", "h")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@h1", "alex@h1"}, resp.Users)
}
