package printing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskTypeTicket identifies kitchen ticket print jobs on the queue.
const TaskTypeTicket = "print:ticket"

// DefaultZone receives items whose product has no print zone configured.
const DefaultZone = "cocina"

// TicketItem is one row on a printed ticket.
type TicketItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Detail   string `json:"detail,omitempty"`
}

// Ticket is one print job for a single kitchen zone.
type Ticket struct {
	PedidoID  int64        `json:"pedido_id"`
	Mesa      int          `json:"mesa,omitempty"`
	Mozo      string       `json:"mozo,omitempty"`
	Zone      string       `json:"zone"`
	Items     []TicketItem `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
}

// KitchenItem is a to-be-printed item before zone grouping.
type KitchenItem struct {
	Zone     string
	Name     string
	Quantity int
	Detail   string
}

// BuildTickets groups kitchen items into one ticket per print zone,
// preserving item order within each zone.
func BuildTickets(pedidoID int64, mesa int, mozo string, items []KitchenItem) []Ticket {
	byZone := make(map[string]*Ticket)
	var zones []string
	now := time.Now()

	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		zone := item.Zone
		if zone == "" {
			zone = DefaultZone
		}
		ticket, ok := byZone[zone]
		if !ok {
			ticket = &Ticket{PedidoID: pedidoID, Mesa: mesa, Mozo: mozo, Zone: zone, CreatedAt: now}
			byZone[zone] = ticket
			zones = append(zones, zone)
		}
		ticket.Items = append(ticket.Items, TicketItem{Name: item.Name, Quantity: item.Quantity, Detail: item.Detail})
	}

	out := make([]Ticket, 0, len(zones))
	for _, zone := range zones {
		out = append(out, *byZone[zone])
	}
	return out
}

// Enqueuer pushes tickets onto the print queue. A nil client disables
// printing, which keeps tests and print-less terminals simple.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
	Logger zerolog.Logger
}

// EnqueueTickets queues one task per ticket. Failures are returned after
// attempting every ticket so a single bad zone does not silently swallow
// the rest.
func (e *Enqueuer) EnqueueTickets(ctx context.Context, tickets []Ticket) error {
	if e == nil || e.Client == nil {
		return nil
	}
	var firstErr error
	for _, ticket := range tickets {
		payload, err := json.Marshal(ticket)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("encode ticket: %w", err)
			}
			continue
		}
		task := asynq.NewTask(TaskTypeTicket, payload)
		opts := []asynq.Option{asynq.MaxRetry(5), asynq.Timeout(30 * time.Second)}
		if e.Queue != "" {
			opts = append(opts, asynq.Queue(e.Queue))
		}
		if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
			e.Logger.Error().Err(err).Str("zone", ticket.Zone).Int64("pedido_id", ticket.PedidoID).Msg("ticket enqueue failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.Logger.Info().Str("zone", ticket.Zone).Int64("pedido_id", ticket.PedidoID).Int("items", len(ticket.Items)).Msg("ticket enqueued")
	}
	return firstErr
}
