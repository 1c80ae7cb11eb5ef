package printing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Handler consumes print tasks. Rendering targets the zone printer; until
// a printer driver is wired in, tickets are rendered to the log.
type Handler struct {
	Logger zerolog.Logger
}

// HandleTicket renders one kitchen ticket.
func (h Handler) HandleTicket(ctx context.Context, task *asynq.Task) error {
	var ticket Ticket
	if err := json.Unmarshal(task.Payload(), &ticket); err != nil {
		return fmt.Errorf("decode ticket payload: %w", err)
	}

	var b strings.Builder
	for _, item := range ticket.Items {
		fmt.Fprintf(&b, "%dx %s", item.Quantity, item.Name)
		if item.Detail != "" {
			fmt.Fprintf(&b, " (%s)", item.Detail)
		}
		b.WriteString("; ")
	}
	h.Logger.Info().
		Int64("pedido_id", ticket.PedidoID).
		Int("mesa", ticket.Mesa).
		Str("mozo", ticket.Mozo).
		Str("zone", ticket.Zone).
		Str("lines", strings.TrimSuffix(b.String(), "; ")).
		Msg("printing kitchen ticket")
	return nil
}

// Register wires the handler onto an asynq mux.
func (h Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeTicket, h.HandleTicket)
}
