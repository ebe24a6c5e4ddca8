package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and runs the connection until it closes. The
// connection is Anonymous until it sends a login event.
func ServeWS(ctx context.Context, h *Hub, r *Router, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, r, conn)
	h.Attach(client)
	r.log.Debug("connection opened", zap.String("conn", client.id), zap.String("remote", c.ClientIP()))
	go client.Serve(ctx)
}
