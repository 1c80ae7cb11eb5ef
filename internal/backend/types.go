package backend

import "encoding/json"

// Carta is a menu published by the backend. Only one carta is active at a time.
type Carta struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Activa bool   `json:"activa"`
}

// Producto is a sellable menu item as served by the backend.
type Producto struct {
	ID            int64       `json:"id"`
	Nombre        string      `json:"nombre"`
	PrecioVenta   json.Number `json:"precio_venta"`
	Categoria     string      `json:"categoria,omitempty"`
	ZonaImpresion string      `json:"zona_impresion,omitempty"`
	Activo        bool        `json:"activo"`
}

// Combo is a fixed-price bundle of products.
type Combo struct {
	ID     int64       `json:"id"`
	Nombre string      `json:"nombre"`
	Precio json.Number `json:"precio"`
	Activo bool        `json:"activo"`
}

// ComboItem is one recipe line of a combo: cantidad units of a product.
type ComboItem struct {
	ID              int64 `json:"id"`
	ComboID         int64 `json:"combo_id"`
	ProductoCartaID int64 `json:"producto_carta_id"`
	Cantidad        int   `json:"cantidad"`
}

// PedidoItem is a plain product line on a persisted or outgoing order.
type PedidoItem struct {
	ProductoCartaID int64       `json:"producto_carta_id"`
	Cantidad        int         `json:"cantidad"`
	PrecioUnitario  json.Number `json:"precio_unitario"`
}

// PedidoComboItem is one charged unit inside a persisted combo instance.
type PedidoComboItem struct {
	ProductoCartaID int64       `json:"producto_carta_id"`
	Cantidad        int         `json:"cantidad"`
	PrecioUnitario  json.Number `json:"precio_unitario"`
}

// PedidoCombo is one combo line on a persisted or outgoing order.
type PedidoCombo struct {
	ID               int64             `json:"id,omitempty"`
	ComboID          int64             `json:"combo_id"`
	Cantidad         int               `json:"cantidad"`
	PrecioUnitario   json.Number       `json:"precio_unitario"`
	PedidoComboItems []PedidoComboItem `json:"pedido_combo_items,omitempty"`
}

// Pedido is an order as persisted by the backend.
type Pedido struct {
	ID         int64         `json:"id"`
	MesaID     int64         `json:"mesa_id,omitempty"`
	ClienteID  int64         `json:"cliente_id,omitempty"`
	MozoID     string        `json:"mozo_id,omitempty"`
	TipoPedido string        `json:"tipo_pedido"`
	Comensales int           `json:"comensales,omitempty"`
	Estado     string        `json:"estado,omitempty"`
	Items      []PedidoItem  `json:"items"`
	Combos     []PedidoCombo `json:"combos"`
}

// PedidoPayload is the wire shape for creating or updating an order.
type PedidoPayload struct {
	MesaID     int64         `json:"mesa_id,omitempty"`
	ClienteID  int64         `json:"cliente_id,omitempty"`
	MozoID     string        `json:"mozo_id,omitempty"`
	TipoPedido string        `json:"tipo_pedido"`
	Comensales int           `json:"comensales,omitempty"`
	Items      []PedidoItem  `json:"items"`
	Combos     []PedidoCombo `json:"combos"`
}

// Mesa is a table registered with the backend.
type Mesa struct {
	ID     int64  `json:"id"`
	Numero int    `json:"numero"`
	MozoID string `json:"mozo_id,omitempty"`
	Estado string `json:"estado,omitempty"`
}

// Cliente is a takeaway or delivery customer.
type Cliente struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}
