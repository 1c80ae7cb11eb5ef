package cart

import (
	"errors"

	"github.com/lacomanda/pos-terminal/internal/catalog"
	"github.com/lacomanda/pos-terminal/internal/pricing"
)

var (
	// ErrLineNotFound is returned when a line id does not exist in the draft.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrComboUnconfigured is returned when a combo has no recipe lines.
	ErrComboUnconfigured = errors.New("combo has no recipe")
	// ErrPrivilegeRequired is returned when shrinking persisted lines without
	// an elevated role.
	ErrPrivilegeRequired = errors.New("privilege required to modify persisted lines")
	// ErrQuantityFloor is returned when a decrement would drop a fresh line
	// below zero.
	ErrQuantityFloor = errors.New("quantity already at zero")
)

// Draft is the working order for one table or customer. It mixes persisted
// lines, rebuilt from the backend, with fresh lines added on this terminal.
// Drafts are not safe for concurrent use; the owning session serializes
// access.
type Draft struct {
	Lines []*Line
}

// AddProduct adds quantity units of a product. Repeat adds merge into an
// existing fresh, unmodified line for the same product; persisted lines are
// never merged into.
func (d *Draft) AddProduct(p *catalog.Product, quantity int) *Line {
	if quantity <= 0 {
		quantity = 1
	}
	for _, line := range d.Lines {
		if line.Kind == KindProduct && line.ProductID == p.ID && !line.AlreadyPersisted && !line.Modified {
			line.Quantity += quantity
			return line
		}
	}
	line := &Line{
		UniqueID:  NewLineID(),
		Kind:      KindProduct,
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		PrintZone: p.PrintZone,
	}
	d.Lines = append(d.Lines, line)
	return line
}

// AddCombo expands a combo into per-unit instances from its recipe. A
// recipe line of quantity N yields N instances, each charged at the
// component's base price. Combos never merge; every add is its own line.
func (d *Draft) AddCombo(c *catalog.Combo, recipe []catalog.RecipeLine, snap *catalog.Snapshot) (*Line, error) {
	if len(recipe) == 0 {
		return nil, ErrComboUnconfigured
	}
	var instances []InstanceItem
	for _, rl := range recipe {
		product := snap.ProductByID(rl.ProductID)
		if product == nil {
			return nil, ErrComboUnconfigured
		}
		for i := 0; i < rl.Quantity; i++ {
			instances = append(instances, InstanceItem{
				ProductID:    product.ID,
				Name:         product.Name,
				BasePrice:    product.Price,
				ChargedPrice: product.Price,
				PrintZone:    product.PrintZone,
			})
		}
	}
	line := &Line{
		UniqueID:       NewLineID(),
		Kind:           KindCombo,
		ComboID:        c.ID,
		Name:           c.Name,
		UnitPrice:      c.Price,
		Quantity:       1,
		ComboBasePrice: c.Price,
		Instances:      instances,
	}
	d.Lines = append(d.Lines, line)
	return line, nil
}

// Find returns the line with the given id, nil when absent.
func (d *Draft) Find(lineID string) *Line {
	for _, line := range d.Lines {
		if line.UniqueID == lineID {
			return line
		}
	}
	return nil
}

// Increment raises a line's quantity by one. Raising a persisted line is
// always allowed; the submission diff sends only the delta to the kitchen.
func (d *Draft) Increment(lineID string) (*Line, error) {
	line := d.Find(lineID)
	if line == nil {
		return nil, ErrLineNotFound
	}
	line.Quantity++
	return line, nil
}

// Decrement lowers a line's quantity by one. Fresh lines are removed when
// they reach zero. Persisted lines shrink freely down to the quantity the
// backend already accepted; going below that needs an elevated actor.
func (d *Draft) Decrement(lineID string, privileged bool) (*Line, error) {
	line := d.Find(lineID)
	if line == nil {
		return nil, ErrLineNotFound
	}
	if line.AlreadyPersisted && line.Quantity-1 < line.OriginalQuantity && !privileged {
		return nil, ErrPrivilegeRequired
	}
	if line.Quantity <= 0 {
		return nil, ErrQuantityFloor
	}
	line.Quantity--
	if line.Quantity == 0 {
		d.remove(lineID)
	}
	return line, nil
}

// Remove deletes a line outright. Persisted lines need an elevated actor.
func (d *Draft) Remove(lineID string, privileged bool) error {
	line := d.Find(lineID)
	if line == nil {
		return ErrLineNotFound
	}
	if line.AlreadyPersisted && !privileged {
		return ErrPrivilegeRequired
	}
	d.remove(lineID)
	return nil
}

func (d *Draft) remove(lineID string) {
	for i, line := range d.Lines {
		if line.UniqueID == lineID {
			d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
			return
		}
	}
}

// Replace swaps the line with the given id for a new one, keeping position.
func (d *Draft) Replace(lineID string, replacement *Line) error {
	for i, line := range d.Lines {
		if line.UniqueID == lineID {
			d.Lines[i] = replacement
			return nil
		}
	}
	return ErrLineNotFound
}

// Append adds a line at the end of the draft.
func (d *Draft) Append(line *Line) {
	d.Lines = append(d.Lines, line)
}

// Total is the sum of all line subtotals.
func (d *Draft) Total() pricing.Money {
	var total pricing.Money
	for _, line := range d.Lines {
		total += line.Subtotal()
	}
	return total
}

// HasFreshWork reports whether anything would reach the kitchen on submit.
func (d *Draft) HasFreshWork() bool {
	for _, line := range d.Lines {
		if !line.AlreadyPersisted || line.Modified || line.Quantity != line.OriginalQuantity {
			return true
		}
	}
	return false
}

// MarkSubmitted flips every line to persisted after a successful submission,
// recording the accepted quantities as the new baseline.
func (d *Draft) MarkSubmitted() {
	for _, line := range d.Lines {
		line.AlreadyPersisted = true
		line.OriginalQuantity = line.Quantity
		line.Modified = false
	}
}
