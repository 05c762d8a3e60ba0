package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatrelay/internal/crypto"
	"github.com/iudanet/chatrelay/internal/server"
	"github.com/iudanet/chatrelay/internal/server/handlers"
	"github.com/iudanet/chatrelay/internal/server/middleware"
	"github.com/iudanet/chatrelay/internal/server/relay"
	"github.com/iudanet/chatrelay/internal/server/storage/sqlite"
	"github.com/iudanet/chatrelay/internal/token"
	"github.com/iudanet/chatrelay/pkg/api"
)

const (
	testCustodyPassphrase = "server-wide-passphrase"
	testClientPassphrase  = "client-side-passphrase"
)

type fixture struct {
	srv *httptest.Server
}

func setupServer(t *testing.T) *fixture {
	t.Helper()

	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	codec, err := token.New("handlers-test-secret", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	h := handlers.New(logger, s, s, codec, testCustodyPassphrase, "chatrelay_test")
	relayHandler := relay.New(logger, codec, s, s, s, relay.DefaultPollInterval)

	srv := httptest.NewServer(server.NewRouter(logger, h, relayHandler, codec, s))
	t.Cleanup(srv.Close)

	return &fixture{srv: srv}
}

// doJSON выполняет запрос и декодирует тело ответа в out (если out != nil).
// Возвращает статус и значение заголовка Auth.
func (f *fixture) doJSON(t *testing.T, method, path, tok string, body, out any) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set(middleware.HeaderAuth, tok)
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode, resp.Header.Get(middleware.HeaderAuth)
}

// account — зарегистрированная идентичность вместе с клиентской парой ключей
type account struct {
	uid        string
	login      string
	tok        string
	custodyPub string
	clientPub  string
	clientPriv string
}

func (f *fixture) mustRegister(t *testing.T, name, hostname, password string) *account {
	t.Helper()

	clientPub, clientPriv, err := crypto.GenerateKeyPair(testClientPassphrase)
	require.NoError(t, err)

	var resp api.RegisterResponse
	status, tok := f.doJSON(t, http.MethodPost, "/api/user/register", "", api.RegisterRequest{
		Username: name,
		Hostname: hostname,
		Password: password,
		UserPubK: clientPub,
	}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, tok)

	return &account{
		uid:        resp.UID,
		login:      resp.Login,
		tok:        tok,
		custodyPub: resp.SrvPubK,
		clientPub:  clientPub,
		clientPriv: clientPriv,
	}
}

func TestRegister(t *testing.T) {
	f := setupServer(t)

	acc := f.mustRegister(t, "alice", "h1", "password123")
	assert.NotEmpty(t, acc.uid)
	assert.Equal(t, "alice@h1", acc.login)
	assert.Contains(t, acc.custodyPub, "BEGIN PUBLIC KEY")

	tests := []struct {
		name       string
		req        api.RegisterRequest
		wantStatus int
		wantErr    string
	}{
		{
			name:       "duplicate name",
			req:        api.RegisterRequest{Username: "alice", Hostname: "h2", Password: "password123", UserPubK: "pem"},
			wantStatus: http.StatusConflict,
			wantErr:    "user already registered",
		},
		{
			name:       "missing fields",
			req:        api.RegisterRequest{Username: "carol", Hostname: "h1"},
			wantStatus: http.StatusBadRequest,
			wantErr:    "not all fields specified",
		},
		{
			name:       "short password",
			req:        api.RegisterRequest{Username: "carol", Hostname: "h1", Password: "short", UserPubK: "pem"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non alphanumeric name",
			req:        api.RegisterRequest{Username: "ca rol", Hostname: "h1", Password: "password123", UserPubK: "pem"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp api.ErrorResponse
			status, _ := f.doJSON(t, http.MethodPost, "/api/user/register", "", tt.req, &errResp)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errResp.Error)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	f := setupServer(t)
	acc := f.mustRegister(t, "alice", "h1", "password123")

	t.Run("success", func(t *testing.T) {
		var resp api.LoginResponse
		status, tok := f.doJSON(t, http.MethodPost, "/api/user/login", "", api.LoginRequest{
			Username: "alice", Hostname: "h1", Password: "password123",
		}, &resp)
		assert.Equal(t, http.StatusOK, status)
		assert.NotEmpty(t, tok)
		assert.Equal(t, acc.uid, resp.UID)
		assert.Equal(t, acc.custodyPub, resp.SrvPubK)
	})

	t.Run("wrong password", func(t *testing.T) {
		var errResp api.ErrorResponse
		status, tok := f.doJSON(t, http.MethodPost, "/api/user/login", "", api.LoginRequest{
			Username: "alice", Hostname: "h1", Password: "wrongpassword",
		}, &errResp)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Empty(t, tok)
		assert.Equal(t, "bad auth data", errResp.Error)
	})

	t.Run("unknown user", func(t *testing.T) {
		var errResp api.ErrorResponse
		status, _ := f.doJSON(t, http.MethodPost, "/api/user/login", "", api.LoginRequest{
			Username: "ghost", Hostname: "h1", Password: "password123",
		}, &errResp)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "user not found", errResp.Error)
	})
}

func TestSearch(t *testing.T) {
	f := setupServer(t)
	acc := f.mustRegister(t, "alice", "h1", "password123")
	f.mustRegister(t, "alex", "h1", "password123")
	f.mustRegister(t, "bob", "h2", "password123")

	t.Run("requires token", func(t *testing.T) {
		status, _ := f.doJSON(t, http.MethodGet, "/api/user/search?username=al", "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("prefix match", func(t *testing.T) {
		var resp api.SearchResponse
		status, _ := f.doJSON(t, http.MethodGet, "/api/user/search?username=al", acc.tok, nil, &resp)
		assert.Equal(t, http.StatusOK, status)
		assert.ElementsMatch(t, []string{"alice@h1", "alex@h1"}, resp.Users)
	})

	t.Run("empty prefix matches all", func(t *testing.T) {
		var resp api.SearchResponse
		status, _ := f.doJSON(t, http.MethodGet, "/api/user/search", acc.tok, nil, &resp)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, resp.Users, 3)
	})
}

// mustWrapKey заворачивает симметричный ключ под custody-ключ инициатора
func mustWrapKey(t *testing.T, key, custodyPub string) string {
	t.Helper()

	wrapped, err := crypto.EncryptOAEP([]byte(key), custodyPub)
	require.NoError(t, err)
	return wrapped
}

func TestChatEstablishment(t *testing.T) {
	f := setupServer(t)
	alice := f.mustRegister(t, "alice", "h1", "password123")
	bob := f.mustRegister(t, "bob", "h1", "password123")

	chatKey, err := crypto.GenerateSymmetricKey()
	require.NoError(t, err)

	var created api.NewChatResponse
	status, _ := f.doJSON(t, http.MethodPost, "/api/chat/new", alice.tok, api.NewChatRequest{
		DestUsername: "bob",
		DestHostname: "h1",
		EncAES:       mustWrapKey(t, chatKey, alice.custodyPub),
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "1", created.CID)

	t.Run("duplicate pair either direction", func(t *testing.T) {
		key2, err := crypto.GenerateSymmetricKey()
		require.NoError(t, err)

		var errResp api.ErrorResponse
		status, _ := f.doJSON(t, http.MethodPost, "/api/chat/new", alice.tok, api.NewChatRequest{
			DestUsername: "bob", DestHostname: "h1",
			EncAES: mustWrapKey(t, key2, alice.custodyPub),
		}, &errResp)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "can't create second chat with user", errResp.Error)

		status, _ = f.doJSON(t, http.MethodPost, "/api/chat/new", bob.tok, api.NewChatRequest{
			DestUsername: "alice", DestHostname: "h1",
			EncAES: mustWrapKey(t, key2, bob.custodyPub),
		}, &errResp)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("self chat", func(t *testing.T) {
		var errResp api.ErrorResponse
		status, _ := f.doJSON(t, http.MethodPost, "/api/chat/new", alice.tok, api.NewChatRequest{
			DestUsername: "alice", DestHostname: "h1",
			EncAES: mustWrapKey(t, chatKey, alice.custodyPub),
		}, &errResp)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "you can't chat yourself", errResp.Error)
	})

	t.Run("unknown peer", func(t *testing.T) {
		var errResp api.ErrorResponse
		status, _ := f.doJSON(t, http.MethodPost, "/api/chat/new", alice.tok, api.NewChatRequest{
			DestUsername: "ghost", DestHostname: "h1",
			EncAES: mustWrapKey(t, chatKey, alice.custodyPub),
		}, &errResp)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "user not found", errResp.Error)
	})

	t.Run("key wrapped under wrong custody key", func(t *testing.T) {
		carol := f.mustRegister(t, "carol", "h1", "password123")

		// Ключ завернут под custody-ключ bob, а разворачивает его carol
		var errResp api.ErrorResponse
		status, _ := f.doJSON(t, http.MethodPost, "/api/chat/new", carol.tok, api.NewChatRequest{
			DestUsername: "bob", DestHostname: "h1",
			EncAES: mustWrapKey(t, chatKey, bob.custodyPub),
		}, &errResp)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "bad aes", errResp.Error)
	})

	t.Run("list rewraps key for each participant", func(t *testing.T) {
		for _, acc := range []*account{alice, bob} {
			var resp api.ListChatsResponse
			status, _ := f.doJSON(t, http.MethodGet, "/api/chat/list", acc.tok, nil, &resp)
			require.Equal(t, http.StatusOK, status)
			require.Len(t, resp.Chats, 1)

			entry := resp.Chats[0]
			assert.Equal(t, "alice@h1", entry.InitLogin)
			assert.Equal(t, "bob@h1", entry.DstLogin)
			assert.Equal(t, "1", entry.CID)

			// Переупакованный ключ разворачивается личным приватным
			// ключом участника в исходный chat key
			unwrapped, err := crypto.DecryptOAEP(entry.AES, acc.clientPriv, testClientPassphrase)
			require.NoError(t, err)
			assert.Equal(t, chatKey, string(unwrapped))
		}
	})
}

func TestStatus(t *testing.T) {
	f := setupServer(t)
	acc := f.mustRegister(t, "alice", "h1", "password123")

	t.Run("anonymous", func(t *testing.T) {
		var resp api.StatusResponse
		status, _ := f.doJSON(t, http.MethodGet, "/status", "", nil, &resp)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "chatrelay_test", resp.App)
		assert.Equal(t, "ok", resp.Status)
		assert.Empty(t, resp.User)
	})

	t.Run("with token", func(t *testing.T) {
		var resp api.StatusResponse
		status, _ := f.doJSON(t, http.MethodGet, "/status", acc.tok, nil, &resp)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "alice@h1", resp.User)
	})
}

func TestContentTypeEnforcement(t *testing.T) {
	f := setupServer(t)

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/api/user/register",
		bytes.NewReader([]byte(`{"username":"alice"}`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}
