package handlers

import (
	"net/http"
	"time"

	"github.com/iudanet/chatrelay/internal/server/middleware"
	"github.com/iudanet/chatrelay/pkg/api"
)

// Status обрабатывает GET /status. Токен опционален: при валидном токене
// в ответ добавляется login вызывающего.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	resp := api.StatusResponse{
		App:    h.appName,
		Status: StatusOK,
		Uptime: time.Since(h.startedAt).Seconds(),
	}

	if ac := middleware.FromContext(r.Context()); ac.Authorized() {
		resp.User = ac.Identity.Login()
	}

	h.sendJSON(w, http.StatusOK, resp)
}
