// Package api - HTTP-транспорт: chi-роутер, JSON и поток событий по websocket.
package api

import (
	"net/http"
	"time"

	"github.com/UkralStul/school-board/internal/account"
	"github.com/UkralStul/school-board/internal/controller"
	"github.com/UkralStul/school-board/internal/dataloader"
	"github.com/UkralStul/school-board/internal/events"
	"github.com/UkralStul/school-board/internal/logger"
	"github.com/UkralStul/school-board/internal/resource"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const keepAlivePingInterval = 10 * time.Second

// Deps - всё, что нужно обработчикам.
type Deps struct {
	Accounts   *account.Service
	Resources  *resource.Service
	Controller *controller.Controller
	Observer   *events.Observer
	// Loaders - источник батчевых загрузок для дерева комментариев.
	Loaders  dataloader.Source
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

type handler struct {
	Deps
	upgrader websocket.Upgrader
}

// NewRouter собирает роутер со всеми маршрутами.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logger.Nop{}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	h := &handler{
		Deps: deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	router.Post("/users", h.register)
	router.Get("/posts", h.listPosts)
	router.Get("/posts/{uuid}/events", h.streamEvents)
	router.Get("/resources/{uuid}", h.getResource)
	router.With(h.withLoaders).Get("/resources/{uuid}/replies", h.replies)

	router.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/users/me", h.me)
		r.Patch("/users/me", h.changeFields)
		r.Post("/posts", h.publish)
		r.Patch("/posts/{uuid}/title", h.editTitle)
		r.Patch("/resources/{uuid}", h.edit)
		r.Post("/resources/{uuid}/marks", h.mark)
		r.Delete("/resources/{uuid}/marks", h.cancelMark)
		r.Post("/resources/{uuid}/comments", h.comment)
	})
	return router
}

func (h *handler) withLoaders(next http.Handler) http.Handler {
	if h.Loaders == nil {
		return next
	}
	return dataloader.Middleware(h.Loaders, next)
}
