package combo

import (
	"errors"
	"sort"

	"github.com/lacomanda/pos-terminal/internal/cart"
	"github.com/lacomanda/pos-terminal/internal/catalog"
	"github.com/lacomanda/pos-terminal/internal/pricing"
)

var (
	// ErrNotACombo is returned when the target line is a plain product.
	ErrNotACombo = errors.New("line is not a combo")
	// ErrEditorBusy is returned when an edit is already in progress.
	ErrEditorBusy = errors.New("combo editor already active")
	// ErrNotEditing is returned for operations that need an active edit.
	ErrNotEditing = errors.New("no combo edit in progress")
	// ErrNotSelecting is returned when no instance is pending replacement.
	ErrNotSelecting = errors.New("no replacement in progress")
	// ErrBadInstance is returned for an out-of-range instance index.
	ErrBadInstance = errors.New("instance index out of range")
)

// State is the editor's position in the customization flow.
type State string

const (
	StateIdle      State = "idle"
	StateEditing   State = "editing"
	StateSelecting State = "selecting"
)

// Group is a display bucket of identical combo instances: same product at
// the same charged price. Indices point back into the working line.
type Group struct {
	ProductID    int64         `json:"product_id"`
	Name         string        `json:"name"`
	ChargedPrice pricing.Money `json:"charged_price"`
	Count        int           `json:"count"`
	Indices      []int         `json:"indices"`
}

// Editor drives the combo customization flow for one session. The working
// line is a detached clone: the draft only changes when Commit runs, so an
// abandoned edit leaves no trace beyond restoring the original quantity.
type Editor struct {
	state        State
	draft        *cart.Draft
	originalID   string
	working      *cart.Line
	pristine     *cart.Line
	split        bool
	replaceIndex int
}

// NewEditor returns an idle editor.
func NewEditor() *Editor {
	return &Editor{state: StateIdle, replaceIndex: -1}
}

// State reports the current flow position.
func (e *Editor) State() State {
	return e.state
}

// Working exposes the detached line under edit, nil when idle.
func (e *Editor) Working() *cart.Line {
	return e.working
}

// Begin starts editing a combo line. When the line holds more than one
// unit, one unit is split off: the original line shrinks by one and the
// clone under edit carries quantity one with a fresh id. A unit split off
// a persisted line stays persisted and takes one unit of the accepted
// baseline with it, so the privilege gate keeps protecting it.
func (e *Editor) Begin(draft *cart.Draft, lineID string) error {
	if e.state != StateIdle {
		return ErrEditorBusy
	}
	line := draft.Find(lineID)
	if line == nil {
		return cart.ErrLineNotFound
	}
	if line.Kind != cart.KindCombo {
		return ErrNotACombo
	}

	working := line.Clone()
	if line.Quantity > 1 {
		line.Quantity--
		working.UniqueID = cart.NewLineID()
		working.Quantity = 1
		if line.AlreadyPersisted && line.OriginalQuantity > 0 {
			working.OriginalQuantity = 1
			line.OriginalQuantity--
		} else {
			working.OriginalQuantity = 0
		}
		e.split = true
	} else {
		e.split = false
	}

	e.draft = draft
	e.originalID = lineID
	e.working = working
	e.pristine = working.Clone()
	e.state = StateEditing
	e.replaceIndex = -1
	return nil
}

// Groups buckets the working instances for display, ordered by first
// appearance.
func (e *Editor) Groups() ([]Group, error) {
	if e.state == StateIdle {
		return nil, ErrNotEditing
	}
	type key struct {
		productID int64
		charged   pricing.Money
	}
	byKey := make(map[key]*Group)
	order := make([]key, 0)
	for i, inst := range e.working.Instances {
		k := key{inst.ProductID, inst.ChargedPrice}
		group, ok := byKey[k]
		if !ok {
			group = &Group{ProductID: inst.ProductID, Name: inst.Name, ChargedPrice: inst.ChargedPrice}
			byKey[k] = group
			order = append(order, k)
		}
		group.Count++
		group.Indices = append(group.Indices, i)
	}
	out := make([]Group, 0, len(byKey))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Indices[0] < out[j].Indices[0] })
	return out, nil
}

// StartReplace marks one instance for replacement and moves to product
// selection.
func (e *Editor) StartReplace(instanceIndex int) error {
	if e.state != StateEditing {
		return ErrNotEditing
	}
	if instanceIndex < 0 || instanceIndex >= len(e.working.Instances) {
		return ErrBadInstance
	}
	e.replaceIndex = instanceIndex
	e.state = StateSelecting
	return nil
}

// CancelReplace returns to editing without touching the instance.
func (e *Editor) CancelReplace() error {
	if e.state != StateSelecting {
		return ErrNotSelecting
	}
	e.replaceIndex = -1
	e.state = StateEditing
	return nil
}

// ApplyReplacement swaps the pending instance for the chosen product.
// Upgrades charge the price difference on top of the instance's base;
// downgrades keep the base price. Picking the same product is a no-op.
func (e *Editor) ApplyReplacement(p *catalog.Product) error {
	if e.state != StateSelecting {
		return ErrNotSelecting
	}
	inst := &e.working.Instances[e.replaceIndex]
	if p.ID == inst.ProductID {
		e.replaceIndex = -1
		e.state = StateEditing
		return nil
	}

	charged := inst.BasePrice
	if delta := p.Price - inst.BasePrice; delta > 0 {
		charged += delta
	}
	inst.ProductID = p.ID
	inst.Name = p.Name
	inst.PrintZone = p.PrintZone
	inst.ChargedPrice = charged

	e.working.Modified = true
	e.working.RecomputeComboPrice()
	e.replaceIndex = -1
	e.state = StateEditing
	return nil
}

// Commit publishes the working line into the draft: appended when a unit
// was split off, otherwise replacing the original line in place.
func (e *Editor) Commit() (*cart.Line, error) {
	if e.state != StateEditing {
		return nil, ErrNotEditing
	}
	committed := e.working
	if e.split {
		e.draft.Append(committed)
	} else {
		if err := e.draft.Replace(e.originalID, committed); err != nil {
			return nil, err
		}
	}
	e.reset()
	return committed, nil
}

// Abandon discards the edit. A split-off unit is returned to the original
// line so no quantity is lost; if the original was removed while the edit
// was open, the untouched clone goes back into the draft instead.
func (e *Editor) Abandon() error {
	if e.state == StateIdle {
		return ErrNotEditing
	}
	if e.split {
		if original := e.draft.Find(e.originalID); original != nil {
			original.Quantity++
			original.OriginalQuantity += e.working.OriginalQuantity
		} else {
			e.draft.Append(e.pristine)
		}
	}
	e.reset()
	return nil
}

func (e *Editor) reset() {
	e.state = StateIdle
	e.draft = nil
	e.originalID = ""
	e.working = nil
	e.pristine = nil
	e.split = false
	e.replaceIndex = -1
}
