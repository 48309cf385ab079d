package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"restock/internal/apierror"
)

// StockRecord is one raw product/stock row from the external inventory
// platform. Records arrive per (product, facility); the sync coordinator
// aggregates them per product before transformation. Optional fields are
// pointers — the transform boundary applies deterministic defaults.
type StockRecord struct {
	ProductID        string   `json:"productId"`
	SKU              string   `json:"sku"`
	Name             string   `json:"name"`
	FacilityName     string   `json:"facilityName"`
	QuantityOnHand   int      `json:"quantityOnHand"`
	QuantityReserved int      `json:"quantityReserved"`
	QuantityOnOrder  int      `json:"quantityOnOrder"`
	UnitCost         *float64 `json:"unitCost"`
	VendorName       *string  `json:"vendor"`
	VendorEmail      *string  `json:"vendorEmail"`
	ReorderPoint     *int     `json:"reorderPoint"`
	ReorderQuantity  *int     `json:"reorderQuantity"`
	LeadTimeDays     *int     `json:"leadTimeDays"`
	MinOrderQty      *int     `json:"minOrderQuantity"`
	OrderIncrement   *int     `json:"orderIncrement"`
	Sales30Days      int      `json:"salesLast30Days"`
	Sales90Days      int      `json:"salesLast90Days"`
}

type pageResponse struct {
	Records []StockRecord `json:"records"`
	HasMore bool          `json:"hasMore"`
}

// InventoryGateway is the paginated read interface to the external platform.
// The concrete client does no retrying of its own; the caller decides.
type InventoryGateway interface {
	FetchPage(ctx context.Context, offset, limit int) ([]StockRecord, bool, error)
}

// GatewayClient talks HTTP to the external inventory platform.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGatewayClient(baseURL, apiKey string) *GatewayClient {
	return &GatewayClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchPage returns one page of product/stock records. A non-success response
// or an undecodable body is an external-API error; both abort the fetch phase
// of a sync run.
func (c *GatewayClient) FetchPage(ctx context.Context, offset, limit int) ([]StockRecord, bool, error) {
	url := fmt.Sprintf("%s/api/inventory?offset=%d&limit=%d", c.baseURL, offset, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, apierror.ExternalAPI("gateway: create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, apierror.ExternalAPI("gateway: unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, apierror.ExternalAPI(fmt.Sprintf("gateway: returned %d", resp.StatusCode), nil)
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, false, apierror.ExternalAPI("gateway: malformed response", err)
	}
	return page.Records, page.HasMore, nil
}
