package checkout_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lacomanda/pos-terminal/internal/backend"
	"github.com/lacomanda/pos-terminal/internal/cart"
	"github.com/lacomanda/pos-terminal/internal/catalog"
	"github.com/lacomanda/pos-terminal/internal/checkout"
	"github.com/lacomanda/pos-terminal/internal/combo"
	"github.com/lacomanda/pos-terminal/internal/common"
)

func testSnapshot() *catalog.Snapshot {
	snap := &catalog.Snapshot{
		CartaID: 1,
		Products: []catalog.Product{
			{ID: 11, Name: "Lomo saltado", Price: 4500, Active: true, PrintZone: "cocina"},
			{ID: 12, Name: "Chicha morada", Price: 800, Active: true, PrintZone: "barra"},
		},
		Combos: []catalog.Combo{{ID: 5, Name: "Combo almuerzo", Price: 5000, Active: true}},
		Recipes: map[int64][]catalog.RecipeLine{
			5: {{ProductID: 11, Quantity: 1}, {ProductID: 12, Quantity: 2}},
		},
	}
	snap.Index()
	return snap
}

func TestBuildPayloadMapsMesaToLocal(t *testing.T) {
	snap := testSnapshot()
	draft := &cart.Draft{}
	draft.AddProduct(snap.ProductByID(11), 2)
	line, err := draft.AddCombo(snap.ComboByID(5), snap.Recipe(5), snap)
	require.NoError(t, err)
	line.Instances[0].ChargedPrice = 5200
	line.RecomputeComboPrice()

	payload := checkout.BuildPayload(draft, checkout.OrderMeta{TipoPedido: "mesa", MesaID: 4, Comensales: 2})

	require.Equal(t, "local", payload.TipoPedido)
	require.Equal(t, int64(4), payload.MesaID)
	require.Len(t, payload.Items, 1)
	require.Equal(t, json.Number("4500"), payload.Items[0].PrecioUnitario)
	require.Len(t, payload.Combos, 1)
	require.Equal(t, json.Number("5700"), payload.Combos[0].PrecioUnitario)

	// Every combo instance travels as one charged unit.
	require.Len(t, payload.Combos[0].PedidoComboItems, 3)
	for _, item := range payload.Combos[0].PedidoComboItems {
		require.Equal(t, 1, item.Cantidad)
	}
	require.Equal(t, json.Number("5200"), payload.Combos[0].PedidoComboItems[0].PrecioUnitario)
}

func TestKitchenDiff(t *testing.T) {
	snap := testSnapshot()
	draft := &cart.Draft{}
	persisted := draft.AddProduct(snap.ProductByID(11), 2)
	draft.MarkSubmitted()

	// Grown persisted line prints only the delta.
	_, err := draft.Increment(persisted.UniqueID)
	require.NoError(t, err)

	fresh := draft.AddProduct(snap.ProductByID(12), 3)

	diff := checkout.KitchenDiff(draft)
	require.Len(t, diff, 2)
	require.Same(t, persisted, diff[0].Line)
	require.Equal(t, 1, diff[0].PrintQuantity)
	require.Same(t, fresh, diff[1].Line)
	require.Equal(t, 3, diff[1].PrintQuantity)
}

func TestKitchenDiffSkipsUntouchedPersisted(t *testing.T) {
	snap := testSnapshot()
	draft := &cart.Draft{}
	draft.AddProduct(snap.ProductByID(11), 2)
	draft.MarkSubmitted()

	require.Empty(t, checkout.KitchenDiff(draft))
}

func TestKitchenDiffModifiedComboPrintsInFull(t *testing.T) {
	snap := testSnapshot()
	draft := &cart.Draft{}
	line, err := draft.AddCombo(snap.ComboByID(5), snap.Recipe(5), snap)
	require.NoError(t, err)
	draft.MarkSubmitted()

	line.Modified = true

	diff := checkout.KitchenDiff(draft)
	require.Len(t, diff, 1)
	require.Equal(t, 1, diff[0].PrintQuantity)
}

func TestKitchenDiffSkipsUnmodifiedSplit(t *testing.T) {
	snap := testSnapshot()
	draft := &cart.Draft{}
	line, err := draft.AddCombo(snap.ComboByID(5), snap.Recipe(5), snap)
	require.NoError(t, err)
	line.Quantity = 2
	draft.MarkSubmitted()

	// Splitting a persisted combo and committing it unchanged reprints
	// nothing: both halves are still the units the kitchen already made.
	editor := combo.NewEditor()
	require.NoError(t, editor.Begin(draft, line.UniqueID))
	_, err = editor.Commit()
	require.NoError(t, err)

	require.Len(t, draft.Lines, 2)
	require.Empty(t, checkout.KitchenDiff(draft))
}

func TestSubmitCreatesOrderWithoutTouchingDraft(t *testing.T) {
	var received backend.PedidoPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pedidos", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"data":{"id":99,"tipo_pedido":"local","items":[],"combos":[]}}`))
	}))
	t.Cleanup(srv.Close)

	snap := testSnapshot()
	draft := &cart.Draft{}
	draft.AddProduct(snap.ProductByID(11), 2)

	svc := &checkout.Service{
		Backend: backend.NewClient(srv.URL, "", 2*time.Second),
		Logger:  zerolog.Nop(),
	}
	pedido, err := svc.Submit(context.Background(), draft, checkout.OrderMeta{TipoPedido: "mesa", MesaID: 4})
	require.NoError(t, err)
	require.Equal(t, int64(99), pedido.ID)
	require.Equal(t, "local", received.TipoPedido)

	// Marking the draft persisted is the caller's job, under its own lock.
	require.False(t, draft.Lines[0].AlreadyPersisted)
	require.True(t, draft.HasFreshWork())
}

func TestSubmitUpdatesExistingOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/pedidos/40", r.URL.Path)
		w.Write([]byte(`{"data":{"id":40,"tipo_pedido":"local","items":[],"combos":[]}}`))
	}))
	t.Cleanup(srv.Close)

	snap := testSnapshot()
	draft := &cart.Draft{}
	draft.AddProduct(snap.ProductByID(11), 1)
	draft.MarkSubmitted()
	draft.AddProduct(snap.ProductByID(12), 1)

	svc := &checkout.Service{Backend: backend.NewClient(srv.URL, "", 2*time.Second), Logger: zerolog.Nop()}
	pedido, err := svc.Submit(context.Background(), draft, checkout.OrderMeta{TipoPedido: "mesa", MesaID: 4, PedidoID: 40})
	require.NoError(t, err)
	require.Equal(t, int64(40), pedido.ID)
}

func TestSubmitKeepsDraftOnBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	snap := testSnapshot()
	draft := &cart.Draft{}
	draft.AddProduct(snap.ProductByID(11), 1)

	svc := &checkout.Service{Backend: backend.NewClient(srv.URL, "", 2*time.Second), Logger: zerolog.Nop()}
	_, err := svc.Submit(context.Background(), draft, checkout.OrderMeta{TipoPedido: "mesa", MesaID: 4})
	require.Error(t, err)
	require.False(t, draft.Lines[0].AlreadyPersisted)
	require.True(t, draft.HasFreshWork())
}

func TestSubmitRejectsEmptyDiff(t *testing.T) {
	snap := testSnapshot()
	draft := &cart.Draft{}
	draft.AddProduct(snap.ProductByID(11), 1)
	draft.MarkSubmitted()

	svc := &checkout.Service{Logger: zerolog.Nop()}
	_, err := svc.Submit(context.Background(), draft, checkout.OrderMeta{TipoPedido: "mesa"})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestSubmitBuffetRequiresComensales(t *testing.T) {
	snap := testSnapshot()
	draft := &cart.Draft{}
	draft.AddProduct(snap.ProductByID(11), 1)

	svc := &checkout.Service{Logger: zerolog.Nop(), BuffetMode: true}
	_, err := svc.Submit(context.Background(), draft, checkout.OrderMeta{TipoPedido: "mesa", Comensales: 0})
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeBadRequest, appErr.Code)

	// Takeaway is exempt from the diner count rule.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":1,"tipo_pedido":"llevar","items":[],"combos":[]}}`))
	}))
	t.Cleanup(srv.Close)
	svc.Backend = backend.NewClient(srv.URL, "", 2*time.Second)
	_, err = svc.Submit(context.Background(), draft, checkout.OrderMeta{TipoPedido: "llevar"})
	require.NoError(t, err)
}
