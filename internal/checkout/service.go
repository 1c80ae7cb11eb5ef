package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lacomanda/pos-terminal/internal/backend"
	"github.com/lacomanda/pos-terminal/internal/cart"
	"github.com/lacomanda/pos-terminal/internal/common"
	"github.com/lacomanda/pos-terminal/internal/obs"
	"github.com/lacomanda/pos-terminal/internal/pricing"
	"github.com/lacomanda/pos-terminal/internal/printing"
)

// OrderMeta describes where a submission goes: the table or customer, the
// waiter, and whether this extends an existing order.
type OrderMeta struct {
	TipoPedido string `json:"tipo_pedido" validate:"required,oneof=mesa llevar delivery"`
	MesaID     int64  `json:"mesa_id,omitempty"`
	MesaNumero int    `json:"mesa_numero,omitempty"`
	ClienteID  int64  `json:"cliente_id,omitempty"`
	MozoID     string `json:"mozo_id,omitempty"`
	MozoNombre string `json:"mozo_nombre,omitempty"`
	Comensales int    `json:"comensales,omitempty"`
	PedidoID   int64  `json:"pedido_id,omitempty"`
}

// DiffLine pairs a draft line with the quantity the kitchen still needs to
// see for it.
type DiffLine struct {
	Line          *cart.Line
	PrintQuantity int
}

func moneyToNumber(m pricing.Money) json.Number {
	return json.Number(strconv.FormatInt(int64(m), 10))
}

// BuildPayload converts the draft into the backend wire shape. The dine-in
// type "mesa" travels as "local"; combo instances are flattened to one
// charged unit each.
func BuildPayload(draft *cart.Draft, meta OrderMeta) backend.PedidoPayload {
	tipo := meta.TipoPedido
	if tipo == "mesa" {
		tipo = "local"
	}
	payload := backend.PedidoPayload{
		MesaID:     meta.MesaID,
		ClienteID:  meta.ClienteID,
		MozoID:     meta.MozoID,
		TipoPedido: tipo,
		Comensales: meta.Comensales,
		Items:      []backend.PedidoItem{},
		Combos:     []backend.PedidoCombo{},
	}

	for _, line := range draft.Lines {
		switch line.Kind {
		case cart.KindProduct:
			payload.Items = append(payload.Items, backend.PedidoItem{
				ProductoCartaID: line.ProductID,
				Cantidad:        line.Quantity,
				PrecioUnitario:  moneyToNumber(line.UnitPrice),
			})
		case cart.KindCombo:
			pc := backend.PedidoCombo{
				ComboID:        line.ComboID,
				Cantidad:       line.Quantity,
				PrecioUnitario: moneyToNumber(line.UnitPrice),
			}
			for _, inst := range line.Instances {
				pc.PedidoComboItems = append(pc.PedidoComboItems, backend.PedidoComboItem{
					ProductoCartaID: inst.ProductID,
					Cantidad:        1,
					PrecioUnitario:  moneyToNumber(inst.ChargedPrice),
				})
			}
			payload.Combos = append(payload.Combos, pc)
		}
	}
	return payload
}

// KitchenDiff computes what the kitchen has not seen yet: fresh lines in
// full, modified combos in full, and for grown persisted lines only the
// added units. Untouched persisted lines never reprint.
func KitchenDiff(draft *cart.Draft) []DiffLine {
	var out []DiffLine
	for _, line := range draft.Lines {
		switch {
		case !line.AlreadyPersisted:
			out = append(out, DiffLine{Line: line, PrintQuantity: line.Quantity})
		case line.Modified:
			out = append(out, DiffLine{Line: line, PrintQuantity: line.Quantity})
		case line.Quantity > line.OriginalQuantity:
			out = append(out, DiffLine{Line: line, PrintQuantity: line.Quantity - line.OriginalQuantity})
		}
	}
	return out
}

// Service submits drafts to the backend and routes the kitchen diff to the
// print queue.
type Service struct {
	Backend    *backend.Client
	Printer    *printing.Enqueuer
	Logger     zerolog.Logger
	BuffetMode bool
}

// Submit sends the draft. On success the diff is queued for printing; the
// draft itself is never mutated here, the caller marks it persisted under
// its own session lock. On failure the draft is left untouched so the
// waiter can retry.
func (s *Service) Submit(ctx context.Context, draft *cart.Draft, meta OrderMeta) (*backend.Pedido, error) {
	if s.BuffetMode && meta.TipoPedido == "mesa" && meta.Comensales < 1 {
		return nil, common.NewAppError(common.CodeBadRequest, "buffet orders need at least one diner", http.StatusBadRequest, nil)
	}
	if !draft.HasFreshWork() {
		return nil, common.NewAppError(common.CodeBadRequest, "nothing new to submit", http.StatusBadRequest, nil)
	}

	diff := KitchenDiff(draft)
	payload := BuildPayload(draft, meta)

	var (
		pedido *backend.Pedido
		err    error
	)
	if meta.PedidoID == 0 {
		pedido, err = s.Backend.CrearPedido(ctx, payload)
	} else {
		pedido, err = s.Backend.ActualizarPedido(ctx, meta.PedidoID, payload)
	}
	if err != nil {
		if m := obs.Domain(); m != nil {
			m.OrdersSubmitted.WithLabelValues(payload.TipoPedido, "error").Inc()
		}
		return nil, err
	}

	tickets := printing.BuildTickets(pedido.ID, meta.MesaNumero, meta.MozoNombre, kitchenItems(diff))
	if printErr := s.Printer.EnqueueTickets(ctx, tickets); printErr != nil {
		// The order is already accepted; a print failure must not undo it.
		s.Logger.Error().Err(printErr).Int64("pedido_id", pedido.ID).Msg("kitchen ticket enqueue failed")
	} else if m := obs.Domain(); m != nil {
		m.TicketsEnqueued.Add(float64(len(tickets)))
	}

	if m := obs.Domain(); m != nil {
		m.OrdersSubmitted.WithLabelValues(payload.TipoPedido, "ok").Inc()
	}
	s.Logger.Info().
		Int64("pedido_id", pedido.ID).
		Str("tipo", payload.TipoPedido).
		Int("lines", len(draft.Lines)).
		Int("tickets", len(tickets)).
		Msg("order submitted")
	return pedido, nil
}

func kitchenItems(diff []DiffLine) []printing.KitchenItem {
	var items []printing.KitchenItem
	for _, d := range diff {
		if d.PrintQuantity <= 0 {
			continue
		}
		line := d.Line
		if line.Kind == cart.KindProduct {
			items = append(items, printing.KitchenItem{
				Zone:     line.PrintZone,
				Name:     line.Name,
				Quantity: d.PrintQuantity,
			})
			continue
		}
		for _, inst := range line.Instances {
			items = append(items, printing.KitchenItem{
				Zone:     inst.PrintZone,
				Name:     inst.Name,
				Quantity: d.PrintQuantity,
				Detail:   line.Name,
			})
		}
	}
	return items
}
