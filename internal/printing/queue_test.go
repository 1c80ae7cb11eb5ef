package printing_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lacomanda/pos-terminal/internal/printing"
)

func TestBuildTicketsGroupsByZone(t *testing.T) {
	tickets := printing.BuildTickets(40, 12, "Lucía", []printing.KitchenItem{
		{Zone: "cocina", Name: "Lomo saltado", Quantity: 2},
		{Zone: "barra", Name: "Chicha morada", Quantity: 1},
		{Zone: "cocina", Name: "Ceviche", Quantity: 1, Detail: "sin aji"},
	})

	require.Len(t, tickets, 2)
	require.Equal(t, "cocina", tickets[0].Zone)
	require.Len(t, tickets[0].Items, 2)
	require.Equal(t, "sin aji", tickets[0].Items[1].Detail)
	require.Equal(t, "barra", tickets[1].Zone)
	require.Equal(t, int64(40), tickets[0].PedidoID)
	require.Equal(t, 12, tickets[0].Mesa)
}

func TestBuildTicketsDefaultsZoneAndSkipsZeroQuantity(t *testing.T) {
	tickets := printing.BuildTickets(40, 0, "", []printing.KitchenItem{
		{Name: "Lomo saltado", Quantity: 1},
		{Zone: "barra", Name: "Agua", Quantity: 0},
	})

	require.Len(t, tickets, 1)
	require.Equal(t, printing.DefaultZone, tickets[0].Zone)
}

func TestNilEnqueuerIsNoOp(t *testing.T) {
	var e *printing.Enqueuer
	require.NoError(t, e.EnqueueTickets(context.Background(), []printing.Ticket{{Zone: "cocina"}}))

	empty := &printing.Enqueuer{Logger: zerolog.Nop()}
	require.NoError(t, empty.EnqueueTickets(context.Background(), []printing.Ticket{{Zone: "cocina"}}))
}

func TestHandleTicketDecodesPayload(t *testing.T) {
	ticket := printing.Ticket{PedidoID: 40, Zone: "cocina", Items: []printing.TicketItem{{Name: "Lomo saltado", Quantity: 2}}}
	payload, err := json.Marshal(ticket)
	require.NoError(t, err)

	handler := printing.Handler{Logger: zerolog.Nop()}
	task := asynq.NewTask(printing.TaskTypeTicket, payload)
	require.NoError(t, handler.HandleTicket(context.Background(), task))

	bad := asynq.NewTask(printing.TaskTypeTicket, []byte("{"))
	require.Error(t, handler.HandleTicket(context.Background(), bad))
}
