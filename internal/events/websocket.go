package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
	"go.uber.org/zap"
)

const pingInterval = 30 * time.Second

// HandleWebSocket возвращает обработчик, который переводит соединение на websocket
// и пересылает в него все уведомления Hub.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			hub.logger.Warn("websocket accept", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		msgs, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		// Входящие кадры не нужны; CloseRead отменяет ctx при закрытии соединения клиентом.
		ctx := conn.CloseRead(r.Context())

		if err := writePump(ctx, conn, msgs); err != nil {
			hub.logger.Debug("websocket closed", zap.Error(err))
			return
		}
		conn.Close(ws.StatusNormalClosure, "")
	}
}

func writePump(ctx context.Context, conn *ws.Conn, msgs <-chan Message) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			data, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := conn.Write(ctx, ws.MessageText, data); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
