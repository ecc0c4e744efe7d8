package handlers

import (
	"github.com/dimitrije/vesting-api/internal/middleware"
	"github.com/dimitrije/vesting-api/internal/sse"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type SSEHandler struct {
	hub          *sse.Hub
	grantService GrantServiceInterface
}

func NewSSEHandler(hub *sse.Hub, grantService GrantServiceInterface) *SSEHandler {
	return &SSEHandler{
		hub:          hub,
		grantService: grantService,
	}
}

// Connect streams created and claimed events for one grant until the client
// goes away.
func (h *SSEHandler) Connect(c *drift.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == "" {
		c.Unauthorized("not authenticated")
		return
	}

	grant := c.Param("grant")
	if _, err := h.grantService.Get(c.Request.Context(), grant); err != nil {
		writeError(c, err)
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.New().String()
	client := &sse.Client{
		ID:        clientID,
		Principal: principal,
		Grants:    map[string]bool{grant: true},
		Send:      make(chan []byte, 256),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if err := sseCtx.SendJSON(map[string]string{
		"type":      "connected",
		"client_id": clientID,
		"grant":     grant,
	}, "system", ""); err != nil {
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "message", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
