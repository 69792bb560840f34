package api

import (
	"context"
	"net/http"

	"github.com/UkralStul/school-board/internal/controller"
	"github.com/UkralStul/school-board/internal/domain"
)

type sessionKey struct{}

// authenticate открывает сессию по учетным данным Basic.
func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			h.fail(w, r, domain.ErrWrongUsername)
			return
		}
		session, err := h.Controller.Open(r.Context(), username, password)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *controller.Session {
	s, _ := ctx.Value(sessionKey{}).(*controller.Session)
	return s
}
