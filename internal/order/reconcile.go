package order

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lacomanda/pos-terminal/internal/backend"
	"github.com/lacomanda/pos-terminal/internal/cart"
	"github.com/lacomanda/pos-terminal/internal/catalog"
	"github.com/lacomanda/pos-terminal/internal/pricing"
)

// Rebuilt is the outcome of reconstructing a draft from a persisted order.
// Dropped counts lines the backend returned that no longer resolve against
// the catalog and were skipped.
type Rebuilt struct {
	Lines   []*cart.Line
	Dropped int
}

// Reconcile rebuilds a cart draft from a persisted order. Persisted unit
// prices are authoritative; the catalog only contributes names, print zones
// and base prices. Lines whose product vanished from the menu are dropped
// with a warning rather than failing the whole reload.
func Reconcile(pedido *backend.Pedido, snap *catalog.Snapshot, logger zerolog.Logger) Rebuilt {
	var out Rebuilt

	for _, item := range pedido.Items {
		product := snap.ProductByID(item.ProductoCartaID)
		if product == nil {
			logger.Warn().
				Int64("pedido_id", pedido.ID).
				Int64("producto_id", item.ProductoCartaID).
				Msg("persisted product missing from catalog, dropping line")
			out.Dropped++
			continue
		}
		out.Lines = append(out.Lines, &cart.Line{
			UniqueID:         cart.NewLineID(),
			Kind:             cart.KindProduct,
			ProductID:        product.ID,
			Name:             product.Name,
			UnitPrice:        pricing.FromNumber(item.PrecioUnitario),
			Quantity:         item.Cantidad,
			PrintZone:        product.PrintZone,
			AlreadyPersisted: true,
			OriginalQuantity: item.Cantidad,
		})
	}

	for _, pc := range pedido.Combos {
		line := rebuildCombo(pedido.ID, pc, snap, logger)
		out.Lines = append(out.Lines, line)
	}

	return out
}

func rebuildCombo(pedidoID int64, pc backend.PedidoCombo, snap *catalog.Snapshot, logger zerolog.Logger) *cart.Line {
	unitPrice := pricing.FromNumber(pc.PrecioUnitario)
	name := fmt.Sprintf("Combo %d", pc.ComboID)
	var basePrice pricing.Money

	if combo := snap.ComboByID(pc.ComboID); combo != nil {
		name = combo.Name
		basePrice = combo.Price
	} else {
		logger.Warn().
			Int64("pedido_id", pedidoID).
			Int64("combo_id", pc.ComboID).
			Msg("persisted combo missing from catalog, keeping charged price")
		basePrice = unitPrice
	}

	quantity := pc.Cantidad
	if quantity <= 0 {
		quantity = 1
	}

	var instances []cart.InstanceItem
	if len(pc.PedidoComboItems) > 0 {
		for _, item := range pc.PedidoComboItems {
			charged := pricing.FromNumber(item.PrecioUnitario)
			count := item.Cantidad
			if count <= 0 {
				count = 1
			}
			inst := cart.InstanceItem{
				ProductID:    item.ProductoCartaID,
				Name:         fmt.Sprintf("Producto %d", item.ProductoCartaID),
				BasePrice:    charged,
				ChargedPrice: charged,
			}
			if product := snap.ProductByID(item.ProductoCartaID); product != nil {
				inst.Name = product.Name
				inst.BasePrice = product.Price
				inst.PrintZone = product.PrintZone
			}
			for i := 0; i < count; i++ {
				instances = append(instances, inst)
			}
		}
	} else {
		// Older orders carry no per-instance detail; fall back to the
		// current recipe at catalog prices.
		logger.Warn().
			Int64("pedido_id", pedidoID).
			Int64("combo_id", pc.ComboID).
			Msg("persisted combo has no instance detail, expanding current recipe")
		for _, rl := range snap.Recipe(pc.ComboID) {
			product := snap.ProductByID(rl.ProductID)
			if product == nil {
				continue
			}
			for i := 0; i < rl.Quantity; i++ {
				instances = append(instances, cart.InstanceItem{
					ProductID:    product.ID,
					Name:         product.Name,
					BasePrice:    product.Price,
					ChargedPrice: product.Price,
					PrintZone:    product.PrintZone,
				})
			}
		}
	}

	return &cart.Line{
		UniqueID:         cart.NewLineID(),
		Kind:             cart.KindCombo,
		ComboID:          pc.ComboID,
		Name:             name,
		UnitPrice:        unitPrice,
		Quantity:         quantity,
		AlreadyPersisted: true,
		OriginalQuantity: quantity,
		ComboBasePrice:   basePrice,
		Instances:        instances,
	}
}
