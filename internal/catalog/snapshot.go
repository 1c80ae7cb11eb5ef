package catalog

import (
	"github.com/lacomanda/pos-terminal/internal/pricing"
)

// Product is a sellable item resolved from the active menu.
type Product struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Price     pricing.Money `json:"price"`
	Category  string        `json:"category,omitempty"`
	PrintZone string        `json:"print_zone,omitempty"`
	Active    bool          `json:"active"`
}

// Combo is a fixed-price bundle resolved from the active menu.
type Combo struct {
	ID     int64         `json:"id"`
	Name   string        `json:"name"`
	Price  pricing.Money `json:"price"`
	Active bool          `json:"active"`
}

// RecipeLine is one component of a combo recipe.
type RecipeLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Snapshot is an immutable view of the active menu. Lookups are index
// backed; a snapshot is built once per refresh and never mutated, so it is
// safe to share across sessions without locking.
type Snapshot struct {
	CartaID  int64                  `json:"carta_id"`
	Products []Product              `json:"products"`
	Combos   []Combo                `json:"combos"`
	Recipes  map[int64][]RecipeLine `json:"recipes"`

	productByID map[int64]*Product
	comboByID   map[int64]*Combo
}

// Index builds the lookup maps. Call after constructing or decoding a snapshot.
func (s *Snapshot) Index() {
	s.productByID = make(map[int64]*Product, len(s.Products))
	for i := range s.Products {
		s.productByID[s.Products[i].ID] = &s.Products[i]
	}
	s.comboByID = make(map[int64]*Combo, len(s.Combos))
	for i := range s.Combos {
		s.comboByID[s.Combos[i].ID] = &s.Combos[i]
	}
}

// ProductByID resolves a product, nil when absent.
func (s *Snapshot) ProductByID(id int64) *Product {
	return s.productByID[id]
}

// ComboByID resolves a combo, nil when absent.
func (s *Snapshot) ComboByID(id int64) *Combo {
	return s.comboByID[id]
}

// Recipe returns the recipe lines for a combo. An empty slice means the
// combo has no configured recipe and cannot be added to a cart.
func (s *Snapshot) Recipe(comboID int64) []RecipeLine {
	return s.Recipes[comboID]
}

// ActiveProducts returns products available as replacement candidates.
func (s *Snapshot) ActiveProducts() []Product {
	out := make([]Product, 0, len(s.Products))
	for _, p := range s.Products {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}
