// Package erp is the outbound gateway to the AutoCount accounting system.
//
// The ERP is an opaque remote service: this package only defines the five RPC
// calls the inventory core needs to mirror its documents, plus the error
// classification the sync orchestrator relies on. Every call has a bounded
// timeout; a timeout or transport error is a retryable failure, never a success.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when the ERP has no item matching the given
// item code. This is a permanent failure: retrying without operator action
// (creating the item in the ERP) can never succeed.
var ErrItemNotFound = errors.New("erp: item code not found")

// AdjustmentType is the direction of a stock adjustment document.
type AdjustmentType string

const (
	AdjustmentIn  AdjustmentType = "IN"
	AdjustmentOut AdjustmentType = "OUT"
	AdjustmentSet AdjustmentType = "SET"
)

// CreateItemParams are the arguments for Client.CreateItem.
type CreateItemParams struct {
	ItemCode     string          `json:"itemCode"`
	Description  string          `json:"description"`
	UOM          string          `json:"uom"`
	StockControl bool            `json:"stockControl"`
	HasBatchNo   bool            `json:"hasBatchNo"`
	StandardCost decimal.Decimal `json:"standardCost"`
	Price        decimal.Decimal `json:"price"`
}

// PurchaseOrderLine is one line of an ERP purchase order document.
type PurchaseOrderLine struct {
	ItemCode  string          `json:"itemCode"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	UOM       string          `json:"uom"`
}

// CreatePurchaseOrderParams are the arguments for Client.CreatePurchaseOrder.
type CreatePurchaseOrderParams struct {
	PONumber   string              `json:"poNumber"`
	SupplierID string              `json:"supplierId"`
	Lines      []PurchaseOrderLine `json:"lines"`
}

// StockAdjustmentParams are the arguments for Client.PostStockAdjustment.
type StockAdjustmentParams struct {
	ItemCode    string          `json:"itemCode"`
	Location    string          `json:"location"`
	Type        AdjustmentType  `json:"type"`
	Qty         decimal.Decimal `json:"qty"`
	UOM         string          `json:"uom"`
	BatchNumber string          `json:"batchNumber,omitempty"`
}

// GoodsReceiptParams are the arguments for Client.PostGoodsReceipt.
type GoodsReceiptParams struct {
	POID        string          `json:"poId"`
	ItemCode    string          `json:"itemCode"`
	Qty         decimal.Decimal `json:"qty"`
	BatchNumber string          `json:"batchNumber,omitempty"`
	Location    string          `json:"location"`
}

// Client is the RPC surface the sync orchestrator dispatches against.
// Every successful call returns the ERP-assigned document number, which the
// caller must persist for idempotent retries and later cancel/reversal calls.
type Client interface {
	CreateItem(ctx context.Context, p CreateItemParams) (string, error)
	CreatePurchaseOrder(ctx context.Context, p CreatePurchaseOrderParams) (string, error)
	CancelPurchaseOrder(ctx context.Context, poNumber, docNo string) error
	PostStockAdjustment(ctx context.Context, p StockAdjustmentParams) (string, error)
	PostGoodsReceipt(ctx context.Context, p GoodsReceiptParams) (string, error)
}

// HTTPClient implements Client against the AutoCount JSON gateway.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient returns an HTTPClient with a per-call timeout.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

var _ Client = (*HTTPClient)(nil)

// docNoResponse is the success envelope all document-creating calls return.
type docNoResponse struct {
	DocNo string `json:"docNo"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateItem registers an item master record in the ERP.
func (c *HTTPClient) CreateItem(ctx context.Context, p CreateItemParams) (string, error) {
	return c.postForDocNo(ctx, "/api/items", p)
}

// CreatePurchaseOrder mirrors a submitted purchase order.
func (c *HTTPClient) CreatePurchaseOrder(ctx context.Context, p CreatePurchaseOrderParams) (string, error) {
	return c.postForDocNo(ctx, "/api/purchase-orders", p)
}

// CancelPurchaseOrder voids a previously mirrored purchase order by its ERP
// document number.
func (c *HTTPClient) CancelPurchaseOrder(ctx context.Context, poNumber, docNo string) error {
	body := map[string]string{"poNumber": poNumber, "docNo": docNo}
	resp, err := c.do(ctx, http.MethodPost, "/api/purchase-orders/cancel", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return c.asError(resp)
	}
	return nil
}

// PostStockAdjustment posts an IN/OUT/SET stock adjustment document.
// Returns ErrItemNotFound when the ERP has no matching item code.
func (c *HTTPClient) PostStockAdjustment(ctx context.Context, p StockAdjustmentParams) (string, error) {
	return c.postForDocNo(ctx, "/api/stock-adjustments", p)
}

// PostGoodsReceipt posts a goods-received note against a purchase order.
func (c *HTTPClient) PostGoodsReceipt(ctx context.Context, p GoodsReceiptParams) (string, error) {
	return c.postForDocNo(ctx, "/api/goods-receipts", p)
}

func (c *HTTPClient) postForDocNo(ctx context.Context, path string, body any) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", c.asError(resp)
	}

	var out docNoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("erp: decode response: %w", err)
	}
	if out.DocNo == "" {
		return "", fmt.Errorf("erp: %s returned empty docNo", path)
	}
	return out.DocNo, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("erp: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("erp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport errors and client timeouts are transient by contract.
		return nil, fmt.Errorf("erp: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// asError converts a non-2xx response into an error, classifying the ERP's
// item-not-found code as the permanent ErrItemNotFound sentinel.
func (c *HTTPClient) asError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var er errorResponse
	_ = json.Unmarshal(raw, &er)

	if resp.StatusCode == http.StatusNotFound && er.Error == "item_not_found" {
		return ErrItemNotFound
	}
	if er.Error != "" {
		return fmt.Errorf("erp: status %d: %s", resp.StatusCode, er.Error)
	}
	return fmt.Errorf("erp: status %d", resp.StatusCode)
}
