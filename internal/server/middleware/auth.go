package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/chatrelay/internal/models"
	"github.com/iudanet/chatrelay/internal/server/storage"
	"github.com/iudanet/chatrelay/internal/token"
)

// HeaderAuth — заголовок с bearer-токеном
const HeaderAuth = "Auth"

// AuthContext — результат прохождения цепочки интерсепторов.
// Err заполняется вместо Identity; запрос при этом не отклоняется —
// решение принимает RequireIdentity либо сам handler (у /status токен
// опционален).
type AuthContext struct {
	IdentityID string
	Identity   *models.Identity
	Err        string
}

// Authorized сообщает, прошла ли аутентификация целиком.
func (ac *AuthContext) Authorized() bool {
	return ac.Err == "" && ac.Identity != nil
}

// Interceptor — один шаг аутентификации запроса.
// Интерсепторы выполняются по порядку; после первой ошибки цепочка
// останавливается.
type Interceptor interface {
	Authenticate(r *http.Request, ac *AuthContext)
}

type ctxKey int

const authCtxKey ctxKey = iota

// Chain собирает интерсепторы в middleware, складывающее AuthContext
// в контекст запроса.
func Chain(interceptors ...Interceptor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := &AuthContext{}
			for _, ic := range interceptors {
				ic.Authenticate(r, ac)
				if ac.Err != "" {
					break
				}
			}

			ctx := context.WithValue(r.Context(), authCtxKey, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext возвращает AuthContext запроса; пустой, если цепочка не стояла.
func FromContext(ctx context.Context) *AuthContext {
	if ac, ok := ctx.Value(authCtxKey).(*AuthContext); ok {
		return ac
	}
	return &AuthContext{Err: "no auth context"}
}

// TokenInterceptor декодирует bearer token из заголовка Auth в identity id
type TokenInterceptor struct {
	Codec *token.Codec
}

// Authenticate implements Interceptor
func (ti *TokenInterceptor) Authenticate(r *http.Request, ac *AuthContext) {
	tok := r.Header.Get(HeaderAuth)
	if tok == "" {
		ac.Err = "Auth token is not specified"
		return
	}

	identityID, err := ti.Codec.Decode(tok)
	if err != nil {
		// ErrInvalidToken и только он: подробности отказа не раскрываются
		ac.Err = "Auth token is invalid"
		return
	}
	ac.IdentityID = identityID
}

// IdentityInterceptor разрешает identity id в полную идентичность
type IdentityInterceptor struct {
	Identities storage.IdentityStorage
}

// Authenticate implements Interceptor
func (ii *IdentityInterceptor) Authenticate(r *http.Request, ac *AuthContext) {
	if ac.IdentityID == "" {
		ac.Err = "Auth token is not specified"
		return
	}

	identity, err := ii.Identities.FindByID(r.Context(), ac.IdentityID)
	if err != nil {
		if errors.Is(err, storage.ErrIdentityNotFound) {
			ac.Err = "Invalid user"
			return
		}
		ac.Err = "Internal error"
		return
	}
	ac.Identity = identity
}

// RequireIdentity отклоняет запросы без полностью прошедшей аутентификации.
// Вешается на защищенные маршруты поверх Chain.
func RequireIdentity(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := FromContext(r.Context())
			if !ac.Authorized() {
				logger.Warn("unauthorized request",
					"path", r.URL.Path,
					"reason", ac.Err,
				)
				writeJSONError(w, ac.Err, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
