// Package server собирает HTTP маршрутизацию сервера.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/chatrelay/internal/server/handlers"
	"github.com/iudanet/chatrelay/internal/server/middleware"
	"github.com/iudanet/chatrelay/internal/server/storage"
	"github.com/iudanet/chatrelay/internal/token"
)

// NewRouter строит маршрутизатор REST и relay частей сервера.
func NewRouter(
	logger *slog.Logger,
	h *handlers.Handlers,
	relay http.Handler,
	codec *token.Codec,
	identities storage.IdentityStorage,
) http.Handler {
	auth := middleware.Chain(
		&middleware.TokenInterceptor{Codec: codec},
		&middleware.IdentityInterceptor{Identities: identities},
	)
	requireID := middleware.RequireIdentity(logger)

	r := mux.NewRouter()

	// /ws регистрируется без Logging: его обертка над ResponseWriter
	// прячет http.Hijacker, и upgrade до WebSocket не проходит
	r.Handle("/ws", middleware.Recovery(logger)(relay))

	// Токен на /status опционален: auth-цепочка стоит, RequireIdentity нет
	r.Handle("/status",
		middleware.Recovery(logger)(
			middleware.Logging(logger)(
				auth(http.HandlerFunc(h.Status)))),
	).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(
		mux.MiddlewareFunc(middleware.Recovery(logger)),
		mux.MiddlewareFunc(middleware.Logging(logger)),
		mux.MiddlewareFunc(middleware.RequireJSON()),
		mux.MiddlewareFunc(auth),
	)

	apiRouter.Handle("/user/register", http.HandlerFunc(h.Register)).Methods(http.MethodPost)
	apiRouter.Handle("/user/login", http.HandlerFunc(h.Login)).Methods(http.MethodPost)
	apiRouter.Handle("/user/search", requireID(http.HandlerFunc(h.Search))).Methods(http.MethodGet)
	apiRouter.Handle("/chat/new", requireID(http.HandlerFunc(h.NewChat))).Methods(http.MethodPost)
	apiRouter.Handle("/chat/list", requireID(http.HandlerFunc(h.ListChats))).Methods(http.MethodGet)

	return r
}
