package catalog

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lacomanda/pos-terminal/internal/backend"
	"github.com/lacomanda/pos-terminal/internal/common"
	"github.com/lacomanda/pos-terminal/internal/pricing"
)

// ErrNotReady is returned when no snapshot has been loaded yet.
var ErrNotReady = errors.New("catalog not loaded")

// ErrNoActiveCarta is returned when the backend has no active menu and no
// override is configured.
var ErrNoActiveCarta = errors.New("no active carta")

// Service loads the menu from the backend and serves an immutable snapshot
// to the rest of the terminal. Loading is all or nothing: a partial menu is
// never published.
type Service struct {
	Backend         *backend.Client
	Cache           *Cache
	Logger          zerolog.Logger
	CartaIDOverride int64

	current atomic.Pointer[Snapshot]
}

// Snapshot returns the current catalog or an AppError with 409
// CATALOG_NOT_READY when nothing has been loaded.
func (s *Service) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, common.NewAppError(common.CodeCatalogNotReady, "catalog not loaded yet", http.StatusConflict, ErrNotReady)
	}
	return snap, nil
}

// Ready reports whether a snapshot is available.
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}

// Load refreshes the catalog from the backend. On success the snapshot is
// published and cached; on failure the previous snapshot stays in place and
// the cache is consulted as a fallback when nothing was loaded before.
func (s *Service) Load(ctx context.Context) (*Snapshot, error) {
	snap, err := s.fetch(ctx)
	if err != nil {
		s.Logger.Error().Err(err).Msg("catalog load failed")
		if s.current.Load() == nil {
			if cached, cacheErr := s.Cache.Get(ctx); cacheErr == nil && cached != nil {
				s.Logger.Warn().Int64("carta_id", cached.CartaID).Msg("serving catalog from cache")
				s.current.Store(cached)
				return cached, nil
			}
		}
		return nil, common.NewAppError(common.CodeCatalogLoadFailed, "could not load catalog", http.StatusBadGateway, err)
	}

	s.current.Store(snap)
	if cacheErr := s.Cache.Set(ctx, snap); cacheErr != nil {
		s.Logger.Warn().Err(cacheErr).Msg("catalog cache write failed")
	}
	s.Logger.Info().
		Int64("carta_id", snap.CartaID).
		Int("products", len(snap.Products)).
		Int("combos", len(snap.Combos)).
		Msg("catalog loaded")
	return snap, nil
}

func (s *Service) fetch(ctx context.Context) (*Snapshot, error) {
	cartaID := s.CartaIDOverride
	if cartaID == 0 {
		cartas, err := s.Backend.Cartas(ctx)
		if err != nil {
			return nil, err
		}
		for _, carta := range cartas {
			if carta.Activa {
				cartaID = carta.ID
				break
			}
		}
		if cartaID == 0 {
			return nil, ErrNoActiveCarta
		}
	}

	productos, err := s.Backend.ProductosPorCarta(ctx, cartaID)
	if err != nil {
		return nil, err
	}
	combos, err := s.Backend.CombosPorCarta(ctx, cartaID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		CartaID: cartaID,
		Recipes: make(map[int64][]RecipeLine, len(combos)),
	}
	for _, p := range productos {
		snap.Products = append(snap.Products, Product{
			ID:        p.ID,
			Name:      p.Nombre,
			Price:     pricing.FromNumber(p.PrecioVenta),
			Category:  p.Categoria,
			PrintZone: p.ZonaImpresion,
			Active:    p.Activo,
		})
	}
	for _, c := range combos {
		snap.Combos = append(snap.Combos, Combo{
			ID:     c.ID,
			Name:   c.Nombre,
			Price:  pricing.FromNumber(c.Precio),
			Active: c.Activo,
		})
		items, err := s.Backend.ComboItems(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		lines := make([]RecipeLine, 0, len(items))
		for _, item := range items {
			lines = append(lines, RecipeLine{ProductID: item.ProductoCartaID, Quantity: item.Cantidad})
		}
		snap.Recipes[c.ID] = lines
	}
	snap.Index()
	return snap, nil
}
