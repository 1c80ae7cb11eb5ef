package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lacomanda/pos-terminal/internal/common"
)

// Client talks to the restaurant backend REST API. All responses arrive
// wrapped in a {"data": ...} envelope; errors carry an error_type field
// that maps onto the terminal's error taxonomy.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient builds a backend client with otel-instrumented transport.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type apiError struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
	Error_    string `json:"error"`
}

func (e apiError) text() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Error_ != "" {
		return e.Error_
	}
	return "backend request failed"
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return common.NewAppError(common.CodeSubmissionFailed, "backend unreachable", http.StatusBadGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return c.mapError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) mapError(status int, raw []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr)

	switch apiErr.ErrorType {
	case "mesa_ocupada_otro_mozo":
		return common.NewAppError(common.CodeMesaConflict, "table is held by another waiter", http.StatusForbidden, nil)
	case "pedido_duplicado":
		return common.NewAppError(common.CodeMesaConflict, "table already has an open order", http.StatusConflict, nil)
	case "mesa_no_existe":
		return common.NewAppError(common.CodeNotFound, "table does not exist", http.StatusNotFound, nil)
	}

	switch status {
	case http.StatusNotFound:
		return common.NewAppError(common.CodeNotFound, apiErr.text(), http.StatusNotFound, nil)
	case http.StatusForbidden:
		return common.NewAppError(common.CodePermissionDenied, apiErr.text(), http.StatusForbidden, nil)
	default:
		return common.NewAppError(common.CodeSubmissionFailed,
			fmt.Sprintf("backend returned %d: %s", status, apiErr.text()),
			http.StatusBadGateway, nil)
	}
}

// Cartas lists all menus.
func (c *Client) Cartas(ctx context.Context) ([]Carta, error) {
	var out []Carta
	if err := c.do(ctx, http.MethodGet, "/cartas", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductosPorCarta lists the products on a menu.
func (c *Client) ProductosPorCarta(ctx context.Context, cartaID int64) ([]Producto, error) {
	var out []Producto
	path := fmt.Sprintf("/cartas/%d/productos", cartaID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CombosPorCarta lists the combos on a menu.
func (c *Client) CombosPorCarta(ctx context.Context, cartaID int64) ([]Combo, error) {
	var out []Combo
	path := fmt.Sprintf("/cartas/%d/combos", cartaID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ComboItems lists the recipe lines of a combo.
func (c *Client) ComboItems(ctx context.Context, comboID int64) ([]ComboItem, error) {
	var out []ComboItem
	path := fmt.Sprintf("/combos/%d/items", comboID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPedido fetches a persisted order with its items and combos.
func (c *Client) GetPedido(ctx context.Context, pedidoID int64) (*Pedido, error) {
	var out Pedido
	path := fmt.Sprintf("/pedidos/%d", pedidoID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CrearPedido creates a new order and returns the persisted version.
func (c *Client) CrearPedido(ctx context.Context, payload PedidoPayload) (*Pedido, error) {
	var out Pedido
	if err := c.do(ctx, http.MethodPost, "/pedidos", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActualizarPedido replaces the contents of an existing order.
func (c *Client) ActualizarPedido(ctx context.Context, pedidoID int64, payload PedidoPayload) (*Pedido, error) {
	var out Pedido
	path := fmt.Sprintf("/pedidos/%d", pedidoID)
	if err := c.do(ctx, http.MethodPut, path, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CrearMesa registers a table for the given waiter. Conflicts surface as
// AppErrors carrying the table conflict taxonomy.
func (c *Client) CrearMesa(ctx context.Context, numero int, mozoID string) (*Mesa, error) {
	var out Mesa
	body := map[string]interface{}{"numero": numero, "mozo_id": mozoID}
	if err := c.do(ctx, http.MethodPost, "/mesas", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CrearCliente registers a takeaway or delivery customer.
func (c *Client) CrearCliente(ctx context.Context, nombre string) (*Cliente, error) {
	var out Cliente
	body := map[string]interface{}{"nombre": nombre}
	if err := c.do(ctx, http.MethodPost, "/clientes", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks backend reachability for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend health returned %d", resp.StatusCode)
	}
	return nil
}
