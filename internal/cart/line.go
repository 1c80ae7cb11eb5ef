package cart

import (
	"github.com/google/uuid"

	"github.com/lacomanda/pos-terminal/internal/pricing"
)

// Kind distinguishes plain product lines from combo lines.
type Kind string

const (
	KindProduct Kind = "product"
	KindCombo   Kind = "combo"
)

// InstanceItem is one concrete unit inside a combo line. BasePrice is the
// recipe product's price at expansion time; ChargedPrice carries any
// replacement surcharge and never drops below BasePrice's contribution.
type InstanceItem struct {
	ProductID    int64         `json:"product_id"`
	Name         string        `json:"name"`
	BasePrice    pricing.Money `json:"base_price"`
	ChargedPrice pricing.Money `json:"charged_price"`
	PrintZone    string        `json:"print_zone,omitempty"`
}

// Line is one row of the order draft. Persisted lines mirror what the
// backend already accepted; fresh lines exist only on this terminal until
// the next submission.
type Line struct {
	UniqueID         string         `json:"unique_id"`
	Kind             Kind           `json:"kind"`
	ProductID        int64          `json:"product_id,omitempty"`
	ComboID          int64          `json:"combo_id,omitempty"`
	Name             string         `json:"name"`
	UnitPrice        pricing.Money  `json:"unit_price"`
	Quantity         int            `json:"quantity"`
	PrintZone        string         `json:"print_zone,omitempty"`
	AlreadyPersisted bool           `json:"already_persisted"`
	OriginalQuantity int            `json:"original_quantity"`
	Modified         bool           `json:"modified"`
	ComboBasePrice   pricing.Money  `json:"combo_base_price,omitempty"`
	Instances        []InstanceItem `json:"instances,omitempty"`
}

// NewLineID mints a cart-local line identifier.
func NewLineID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the line with its own instance slice.
func (l *Line) Clone() *Line {
	dup := *l
	if len(l.Instances) > 0 {
		dup.Instances = make([]InstanceItem, len(l.Instances))
		copy(dup.Instances, l.Instances)
	}
	return &dup
}

// Subtotal is the line's contribution to the draft total.
func (l *Line) Subtotal() pricing.Money {
	return pricing.LineSubtotal(l.UnitPrice, l.Quantity)
}

// RecomputeComboPrice rederives the unit price of a combo line: the combo
// base price plus the surcharge of every replaced instance. Downgrades never
// discount.
func (l *Line) RecomputeComboPrice() {
	if l.Kind != KindCombo {
		return
	}
	total := l.ComboBasePrice
	for _, inst := range l.Instances {
		total += pricing.Surcharge(inst.BasePrice, inst.ChargedPrice)
	}
	l.UnitPrice = total
}
