package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// streamEvents отдает события поста по websocket, пока клиент на связи.
func (h *handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	postUUID := chi.URLParam(r, "uuid")
	// Проверяем, существует ли пост, прежде чем подписываться
	if _, err := h.Resources.Post(r.Context(), postUUID); err != nil {
		h.fail(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warnf("websocket upgrade for post %s: %v", postUUID, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	events := h.Observer.Subscribe(ctx, postUUID)

	// Входящие сообщения не нужны, но чтение замечает отключение клиента.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(keepAlivePingInterval)
	defer ping.Stop()
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
