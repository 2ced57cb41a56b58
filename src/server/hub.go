package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clientsMu.Lock()
			s.clients[client] = struct{}{}
			count := len(s.clients)
			s.clientsMu.Unlock()
			s.Logger.Info("Client %s connected (%d open)", client.id, count)

		case client := <-s.unregister:
			s.dropClient(client)

		case <-s.done:
			s.clientsMu.RLock()
			clients := make([]*Client, 0, len(s.clients))
			for client := range s.clients {
				clients = append(clients, client)
			}
			s.clientsMu.RUnlock()
			for _, client := range clients {
				s.dropClient(client)
			}
			return
		}
	}
}

// -----------------------------------------------------------------------------

// dropClient forgets the client and closes it. The send queue stays open;
// writers select on client.done instead.
func (s *FastAPIServer) dropClient(client *Client) {
	s.clientsMu.Lock()
	_, ok := s.clients[client]
	delete(s.clients, client)
	s.clientsMu.Unlock()
	if !ok {
		return
	}

	client.close()
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(uuid.NewString(), s, conn)

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	if client.isClosed() {
		return
	}

	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse command from client %s: %v", client.id, err)
		client.trySend(errorMessage(helpers.NewValidationError("malformed command")))
		return
	}

	switch cmd.Command {
	case "subscribe":
		req, date, err := s.Resolver.Resolve(queryFromCommand(cmd))
		if err != nil {
			client.trySend(errorMessage(err))
			return
		}
		ctx, ok := client.subscribe()
		if !ok {
			return
		}
		go s.refreshLoop(ctx, client, req, date)

	case "unsubscribe":
		client.unsubscribe()

	default:
		client.trySend(errorMessage(helpers.NewValidationError("unknown command '%s'", cmd.Command)))
	}
}

// -----------------------------------------------------------------------------

// refreshLoop sends the chart once and, while the requested date is the
// current session and the market is open, rebuilds it every RefreshSeconds
// until RefreshLimit updates were sent.
func (s *FastAPIServer) refreshLoop(ctx context.Context, client *Client, req models.MChartRequest, date time.Time) {
	defer client.subscriptionDone()

	if !s.pushChart(ctx, client, req, "INITIAL", 0) {
		return
	}

	chart := s.Config.Chart
	ticker := time.NewTicker(time.Duration(chart.RefreshSeconds) * time.Second)
	defer ticker.Stop()

	for refresh := 1; refresh <= chart.RefreshLimit; refresh++ {
		if !s.Scheduler.IsLive(req.Symbol, date) {
			s.Logger.Debug("Client %s: %s is not live, refresh stopped", client.id, req.Symbol)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !s.pushChart(ctx, client, req, "UPDATE", refresh) {
			return
		}
	}
	s.Logger.Debug("Client %s: refresh limit reached for %s", client.id, req.Symbol)
}

// -----------------------------------------------------------------------------

// pushChart builds and queues one chart. It reports false when the
// subscription ended.
func (s *FastAPIServer) pushChart(ctx context.Context, client *Client, req models.MChartRequest, kind string, refresh int) bool {
	resp, err := s.Service.BuildChart(ctx, req)
	if ctx.Err() != nil {
		return false
	}

	msg := models.MChartMessage{Type: kind, Refresh: refresh, Chart: resp}
	if err != nil {
		msg = errorMessage(err)
		msg.Refresh = refresh
	}

	select {
	case client.send <- msg:
		return true
	case <-ctx.Done():
		return false
	case <-client.done:
		return false
	}
}

// -----------------------------------------------------------------------------

func errorMessage(err error) models.MChartMessage {
	return models.MChartMessage{Type: "ERROR", Error: err.Error(), Kind: helpers.ErrorKind(err)}
}
