package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/lacomanda/pos-terminal/internal/auth"
	"github.com/lacomanda/pos-terminal/internal/backend"
	"github.com/lacomanda/pos-terminal/internal/cart"
	"github.com/lacomanda/pos-terminal/internal/catalog"
	"github.com/lacomanda/pos-terminal/internal/checkout"
	"github.com/lacomanda/pos-terminal/internal/combo"
	"github.com/lacomanda/pos-terminal/internal/common"
	"github.com/lacomanda/pos-terminal/internal/obs"
	"github.com/lacomanda/pos-terminal/internal/order"
	"github.com/lacomanda/pos-terminal/internal/pricing"
)

// Handlers exposes the order-taking surface over HTTP.
type Handlers struct {
	Registry *Registry
	Catalog  *catalog.Service
	Backend  *backend.Client
	Checkout *checkout.Service
	PinGate  auth.PinGate
	Validate *validator.Validate
	Logger   zerolog.Logger

	// TerminalLock mirrors the terminal's lock flag so clients can disable
	// navigation away from an open order. It is frozen at startup.
	TerminalLock bool
}

// Mount registers the session routes on the router.
func (h *Handlers) Mount(r chi.Router) {
	r.Post("/sessions", h.Open)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.View)
		r.Delete("/", h.Close)
		r.Post("/lines/products", h.AddProduct)
		r.Post("/lines/combos", h.AddCombo)
		r.Post("/lines/{lineID}/increment", h.Increment)
		r.Post("/lines/{lineID}/decrement", h.Decrement)
		r.Delete("/lines/{lineID}", h.RemoveLine)
		r.Post("/combo-edit", h.BeginComboEdit)
		r.Post("/combo-edit/replace", h.ReplaceInstance)
		r.Post("/combo-edit/commit", h.CommitComboEdit)
		r.Post("/combo-edit/abandon", h.AbandonComboEdit)
		r.Post("/elevate", h.Elevate)
		r.Post("/submit", h.Submit)
	})
}

type lineView struct {
	*cart.Line
	Subtotal pricing.Money `json:"subtotal"`
}

type sessionView struct {
	ID           string        `json:"id"`
	PedidoID     int64         `json:"pedido_id,omitempty"`
	TipoPedido   string        `json:"tipo_pedido,omitempty"`
	MesaNumero   int           `json:"mesa_numero,omitempty"`
	Lines        []lineView    `json:"lines"`
	Total        pricing.Money `json:"total"`
	DroppedLines int           `json:"dropped_lines,omitempty"`
	EditorState  combo.State   `json:"editor_state"`
	Working      *cart.Line    `json:"working,omitempty"`
	Groups       []combo.Group `json:"groups,omitempty"`
	TerminalLock bool          `json:"terminal_locked"`
}

// renderSession builds the draft view. Callers must hold the session lock.
func (h *Handlers) renderSession(s *Session) sessionView {
	view := sessionView{
		TerminalLock: h.TerminalLock,
		ID:           s.ID,
		PedidoID:     s.Meta.PedidoID,
		TipoPedido:   s.Meta.TipoPedido,
		MesaNumero:   s.Meta.MesaNumero,
		Lines:        make([]lineView, 0, len(s.Draft.Lines)),
		Total:        s.Draft.Total(),
		DroppedLines: s.Dropped,
		EditorState:  s.Editor.State(),
	}
	for _, line := range s.Draft.Lines {
		view.Lines = append(view.Lines, lineView{Line: line, Subtotal: line.Subtotal()})
	}
	if s.Editor.State() != combo.StateIdle {
		view.Working = s.Editor.Working()
		if groups, err := s.Editor.Groups(); err == nil {
			view.Groups = groups
		}
	}
	return view
}

func (h *Handlers) renderDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, cart.ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, err.Error(), nil)
	case errors.Is(err, cart.ErrPrivilegeRequired):
		common.JSONError(w, http.StatusForbidden, common.CodePermissionDenied, "elevated role required to modify persisted lines", nil)
	case errors.Is(err, cart.ErrComboUnconfigured):
		common.JSONError(w, http.StatusConflict, common.CodeComboUnconfigured, "combo has no recipe configured", nil)
	case errors.Is(err, ErrSubmissionInFlight):
		common.JSONError(w, http.StatusConflict, common.CodeSubmissionInFlight, "a submission is already in flight", nil)
	case errors.Is(err, combo.ErrNotACombo),
		errors.Is(err, combo.ErrEditorBusy),
		errors.Is(err, combo.ErrNotEditing),
		errors.Is(err, combo.ErrNotSelecting),
		errors.Is(err, combo.ErrBadInstance),
		errors.Is(err, cart.ErrQuantityFloor):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeReplacementInvalid, err.Error(), nil)
	case errors.Is(err, auth.ErrPinMismatch), errors.Is(err, auth.ErrPinNotConfigured):
		common.JSONError(w, http.StatusForbidden, common.CodePermissionDenied, err.Error(), nil)
	default:
		common.RenderError(w, err)
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.NewAppError(common.CodeBadRequest, "invalid request body", http.StatusBadRequest, err)
	}
	return nil
}

// session resolves the path session and locks it. Mutating handlers also
// refuse to run while a submit is pending.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request, mutating bool) (*Session, bool) {
	s, err := h.Registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.renderDomainError(w, err)
		return nil, false
	}
	s.Lock()
	if mutating && s.Submitting() {
		s.Unlock()
		h.renderDomainError(w, ErrSubmissionInFlight)
		return nil, false
	}
	return s, true
}

type openRequest struct {
	PedidoID      int64  `json:"pedido_id,omitempty"`
	MesaNumero    int    `json:"mesa_numero,omitempty"`
	TipoPedido    string `json:"tipo_pedido,omitempty" validate:"omitempty,oneof=mesa llevar delivery"`
	ClienteNombre string `json:"cliente_nombre,omitempty"`
	Comensales    int    `json:"comensales,omitempty"`
}

// Open creates a session, making sure the catalog is loaded first. An
// optional pedido_id resumes an existing order through reconciliation and
// an optional mesa_numero validates the table against the backend.
func (h *Handlers) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			common.RenderError(w, err)
			return
		}
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid session request", err.Error())
		return
	}

	snap, err := h.Catalog.Snapshot()
	if err != nil {
		if snap, err = h.Catalog.Load(r.Context()); err != nil {
			common.RenderError(w, err)
			return
		}
	}

	actor, _ := common.ActorFrom(r.Context())
	s := h.Registry.Open()
	s.Lock()
	defer s.Unlock()
	s.Meta.MozoID = actor.ID
	s.Meta.MozoNombre = actor.Name
	s.Meta.TipoPedido = req.TipoPedido
	if s.Meta.TipoPedido == "" {
		s.Meta.TipoPedido = "mesa"
	}
	s.Meta.Comensales = req.Comensales

	if req.MesaNumero > 0 {
		mesa, err := h.Backend.CrearMesa(r.Context(), req.MesaNumero, actor.ID)
		if err != nil {
			h.Registry.Close(s.ID)
			h.renderDomainError(w, err)
			return
		}
		s.Meta.MesaID = mesa.ID
		s.Meta.MesaNumero = mesa.Numero
	}

	if req.ClienteNombre != "" {
		cliente, err := h.Backend.CrearCliente(r.Context(), req.ClienteNombre)
		if err != nil {
			h.Registry.Close(s.ID)
			h.renderDomainError(w, err)
			return
		}
		s.Meta.ClienteID = cliente.ID
	}

	if req.PedidoID > 0 {
		pedido, err := h.Backend.GetPedido(r.Context(), req.PedidoID)
		if err != nil {
			h.Registry.Close(s.ID)
			h.renderDomainError(w, err)
			return
		}
		rebuilt := order.Reconcile(pedido, snap, h.Logger)
		s.Draft.Lines = rebuilt.Lines
		s.Dropped = rebuilt.Dropped
		s.Meta.PedidoID = pedido.ID
		if m := obs.Domain(); m != nil && rebuilt.Dropped > 0 {
			m.ReconcileDrops.Add(float64(rebuilt.Dropped))
		}
	}

	common.JSON(w, http.StatusCreated, h.renderSession(s))
}

// View returns the current draft.
func (h *Handlers) View(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, false)
	if !ok {
		return
	}
	defer s.Unlock()
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

// Close discards the session.
func (h *Handlers) Close(w http.ResponseWriter, r *http.Request) {
	h.Registry.Close(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type addProductRequest struct {
	ProductoID int64 `json:"producto_id" validate:"required,gt=0"`
	Cantidad   int   `json:"cantidad,omitempty" validate:"omitempty,gt=0"`
}

// AddProduct adds units of a product, merging into an existing fresh line.
func (h *Handlers) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if err := decodeBody(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product request", err.Error())
		return
	}
	snap, err := h.Catalog.Snapshot()
	if err != nil {
		common.RenderError(w, err)
		return
	}
	product := snap.ProductByID(req.ProductoID)
	if product == nil {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not in catalog", nil)
		return
	}

	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()
	s.Draft.AddProduct(product, req.Cantidad)
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

type addComboRequest struct {
	ComboID int64 `json:"combo_id" validate:"required,gt=0"`
}

// AddCombo expands a combo recipe into a new line.
func (h *Handlers) AddCombo(w http.ResponseWriter, r *http.Request) {
	var req addComboRequest
	if err := decodeBody(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid combo request", err.Error())
		return
	}
	snap, err := h.Catalog.Snapshot()
	if err != nil {
		common.RenderError(w, err)
		return
	}
	cmb := snap.ComboByID(req.ComboID)
	if cmb == nil {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "combo not in catalog", nil)
		return
	}

	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()
	if _, err := s.Draft.AddCombo(cmb, snap.Recipe(cmb.ID), snap); err != nil {
		h.renderDomainError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

// Increment raises a line quantity by one.
func (h *Handlers) Increment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()
	if _, err := s.Draft.Increment(chi.URLParam(r, "lineID")); err != nil {
		h.renderDomainError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

// Decrement lowers a line quantity by one. Shrinking a persisted line below
// the accepted quantity needs an elevated role or an armed PIN elevation.
func (h *Handlers) Decrement(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()

	actor, _ := common.ActorFrom(r.Context())
	lineID := chi.URLParam(r, "lineID")
	_, err := s.Draft.Decrement(lineID, auth.CanModifyPersisted(actor))
	if errors.Is(err, cart.ErrPrivilegeRequired) && s.ConsumeElevation() {
		_, err = s.Draft.Decrement(lineID, true)
	}
	if err != nil {
		h.renderDomainError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

// RemoveLine deletes a line. Persisted lines need privilege.
func (h *Handlers) RemoveLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()

	actor, _ := common.ActorFrom(r.Context())
	lineID := chi.URLParam(r, "lineID")
	err := s.Draft.Remove(lineID, auth.CanModifyPersisted(actor))
	if errors.Is(err, cart.ErrPrivilegeRequired) && s.ConsumeElevation() {
		err = s.Draft.Remove(lineID, true)
	}
	if err != nil {
		h.renderDomainError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

type beginEditRequest struct {
	LineID string `json:"line_id" validate:"required"`
}

// BeginComboEdit opens the editor on a combo line.
func (h *Handlers) BeginComboEdit(w http.ResponseWriter, r *http.Request) {
	var req beginEditRequest
	if err := decodeBody(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid edit request", err.Error())
		return
	}

	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()
	if err := s.Editor.Begin(s.Draft, req.LineID); err != nil {
		h.renderDomainError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

type replaceRequest struct {
	InstanceIndex int   `json:"instance_index" validate:"gte=0"`
	ProductoID    int64 `json:"producto_id" validate:"required,gt=0"`
}

// ReplaceInstance swaps one combo instance for a catalog product, applying
// the price-protection floor.
func (h *Handlers) ReplaceInstance(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := decodeBody(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid replacement request", err.Error())
		return
	}
	snap, err := h.Catalog.Snapshot()
	if err != nil {
		common.RenderError(w, err)
		return
	}

	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()
	// A failed attempt leaves the editor selecting; retargeting cancels it.
	if s.Editor.State() == combo.StateSelecting {
		_ = s.Editor.CancelReplace()
	}
	if err := s.Editor.StartReplace(req.InstanceIndex); err != nil {
		h.renderDomainError(w, err)
		return
	}
	product := snap.ProductByID(req.ProductoID)
	if product == nil || !product.Active {
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeReplacementInvalid, "replacement product not in catalog", nil)
		return
	}
	if err := s.Editor.ApplyReplacement(product); err != nil {
		h.renderDomainError(w, err)
		return
	}
	if m := obs.Domain(); m != nil {
		m.ComboCustomizations.Inc()
	}
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

// CommitComboEdit publishes the working line into the draft.
func (h *Handlers) CommitComboEdit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()
	if _, err := s.Editor.Commit(); err != nil {
		h.renderDomainError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

// AbandonComboEdit discards the edit, restoring any split quantity.
func (h *Handlers) AbandonComboEdit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()
	if err := s.Editor.Abandon(); err != nil {
		h.renderDomainError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, h.renderSession(s))
}

type elevateRequest struct {
	Pin string `json:"pin" validate:"required"`
}

// Elevate arms a one-shot privilege grant after verifying the supervisor PIN.
func (h *Handlers) Elevate(w http.ResponseWriter, r *http.Request) {
	var req elevateRequest
	if err := decodeBody(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid elevate request", err.Error())
		return
	}

	s, ok := h.session(w, r, true)
	if !ok {
		return
	}
	defer s.Unlock()
	if err := h.PinGate.Verify(req.Pin); err != nil {
		h.renderDomainError(w, err)
		return
	}
	s.Elevate()
	h.Logger.Info().Str("session_id", s.ID).Msg("session elevated by supervisor pin")
	common.JSON(w, http.StatusOK, map[string]bool{"elevated": true})
}

type submitRequest struct {
	TipoPedido string `json:"tipo_pedido,omitempty" validate:"omitempty,oneof=mesa llevar delivery"`
	Comensales int    `json:"comensales,omitempty" validate:"omitempty,gte=0"`
}

// Submit sends the draft to the backend. The per-session submitting flag
// rejects overlapping submits and blocks mutations while one is pending.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			common.RenderError(w, err)
			return
		}
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid submit request", err.Error())
		return
	}

	s, err := h.Registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.renderDomainError(w, err)
		return
	}

	s.Lock()
	if s.Editor.State() != combo.StateIdle {
		s.Unlock()
		common.JSONError(w, http.StatusConflict, common.CodeBadRequest, "finish or abandon the combo edit before submitting", nil)
		return
	}
	if err := s.BeginSubmit(); err != nil {
		s.Unlock()
		h.renderDomainError(w, err)
		return
	}
	if req.TipoPedido != "" {
		s.Meta.TipoPedido = req.TipoPedido
	}
	if req.Comensales > 0 {
		s.Meta.Comensales = req.Comensales
	}
	meta := s.Meta
	draft := s.Draft
	s.Unlock()

	pedido, submitErr := h.Checkout.Submit(r.Context(), draft, meta)

	s.Lock()
	defer s.Unlock()
	s.EndSubmit()
	if submitErr != nil {
		h.renderDomainError(w, submitErr)
		return
	}
	// Marking the draft persisted is a mutation, so it happens here with the
	// session lock held, not inside the checkout service.
	s.Draft.MarkSubmitted()
	s.Meta.PedidoID = pedido.ID
	common.JSON(w, http.StatusOK, h.renderSession(s))
}
