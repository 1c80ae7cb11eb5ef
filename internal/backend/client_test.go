package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lacomanda/pos-terminal/internal/backend"
	"github.com/lacomanda/pos-terminal/internal/common"
)

func newTestClient(t *testing.T, handler http.Handler) (*backend.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, "test-token", 2*time.Second), srv
}

func TestProductosPorCartaUnwrapsEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cartas/3/productos", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":11,"nombre":"Lomo saltado","precio_venta":"4500","activo":true,"zona_impresion":"cocina"}]}`))
	}))

	productos, err := client.ProductosPorCarta(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, productos, 1)
	require.Equal(t, int64(11), productos[0].ID)
	require.Equal(t, json.Number("4500"), productos[0].PrecioVenta)
	require.Equal(t, "cocina", productos[0].ZonaImpresion)
}

func TestCartasAcceptsBareArray(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"nombre":"Carta de invierno","activa":true}]`))
	}))

	cartas, err := client.Cartas(context.Background())
	require.NoError(t, err)
	require.Len(t, cartas, 1)
	require.True(t, cartas[0].Activa)
}

func TestCrearMesaMapsConflicts(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		errorType  string
		wantStatus int
		wantCode   string
	}{
		{"held by another waiter", http.StatusForbidden, "mesa_ocupada_otro_mozo", http.StatusForbidden, common.CodeMesaConflict},
		{"duplicate order", http.StatusConflict, "pedido_duplicado", http.StatusConflict, common.CodeMesaConflict},
		{"missing table", http.StatusNotFound, "mesa_no_existe", http.StatusNotFound, common.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				json.NewEncoder(w).Encode(map[string]string{"error_type": tc.errorType})
			}))

			_, err := client.CrearMesa(context.Background(), 12, "mozo-7")
			require.Error(t, err)
			appErr, ok := common.AsAppError(err)
			require.True(t, ok)
			require.Equal(t, tc.wantStatus, appErr.HTTPStatus)
			require.Equal(t, tc.wantCode, appErr.Code)
		})
	}
}

func TestCrearPedidoSendsPayload(t *testing.T) {
	var received backend.PedidoPayload
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"data":{"id":99,"tipo_pedido":"local","items":[],"combos":[]}}`))
	}))

	pedido, err := client.CrearPedido(context.Background(), backend.PedidoPayload{
		MesaID:     4,
		TipoPedido: "local",
		Items:      []backend.PedidoItem{{ProductoCartaID: 11, Cantidad: 2, PrecioUnitario: json.Number("4500")}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(99), pedido.ID)
	require.Equal(t, "local", received.TipoPedido)
	require.Equal(t, int64(4), received.MesaID)
	require.Len(t, received.Items, 1)
}

func TestBackendDownReturnsBadGateway(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := client.GetPedido(context.Background(), 1)
	require.Error(t, err)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
}
