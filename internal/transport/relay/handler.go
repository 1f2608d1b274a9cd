package relay

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ServeWS upgrades any request to a relay connection. There is no
// authentication; every connection may publish and receives everything.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Allow any origin
		})
		if err != nil {
			hub.log.Warn("accept error", zap.Error(err))
			return
		}

		client := NewClient(hub, conn)
		if !hub.add(client) {
			conn.Close(websocket.StatusGoingAway, "relay shutting down")
			return
		}

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}

// NewMux serves the websocket endpoint alongside health and metrics.
func NewMux(hub *Hub, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", ServeWS(hub))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
