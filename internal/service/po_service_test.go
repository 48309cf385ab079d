package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"restock/internal/apierror"
	"restock/internal/dto"
	"restock/internal/model"
	"restock/internal/reorder"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poFixture struct {
	svc       *poService
	orders    *stubPORepo
	inventory *stubInventoryRepo
	vendors   *stubVendorRepo
	courier   *stubCourier
	vendor    *model.Vendor // active, with email
	noMail    *model.Vendor // active, no email
}

func newPOFixture(t *testing.T) *poFixture {
	t.Helper()
	f := &poFixture{
		inventory: newStubInventoryRepo(),
		vendors:   newStubVendorRepo(),
		courier:   &stubCourier{},
	}
	f.orders = newStubPORepo(f.vendors)

	email := "orders@acme.test"
	f.vendor = f.vendors.add(&model.Vendor{Name: "Acme Supply", Email: &email, Active: true})
	f.noMail = f.vendors.add(&model.Vendor{Name: "Quiet Partner", Active: true})

	f.inventory.items["SKU-1"] = &model.InventoryItem{
		ID: uuid.New(), SKU: "SKU-1", ProductName: "Widget",
		CurrentStock: 2, ReorderPoint: 5, ReorderQuantity: 20,
		SalesLast30Days: 60, LeadTimeDays: 10, OrderIncrement: 1,
		VendorID: &f.vendor.ID, Vendor: f.vendor,
		UnitCost: decimal.RequireFromString("10.00"),
	}
	f.inventory.items["SKU-2"] = &model.InventoryItem{
		ID: uuid.New(), SKU: "SKU-2", ProductName: "Gadget",
		CurrentStock: 4, ReorderPoint: 5, ReorderQuantity: 10,
		SalesLast90Days: 9, LeadTimeDays: 7, OrderIncrement: 1,
		VendorID: &f.vendor.ID, Vendor: f.vendor,
		UnitCost: decimal.RequireFromString("4.50"),
	}
	f.inventory.items["SKU-3"] = &model.InventoryItem{
		ID: uuid.New(), SKU: "SKU-3", ProductName: "Sprocket",
		CurrentStock: 1, ReorderPoint: 5, ReorderQuantity: 15,
		LeadTimeDays: 7, OrderIncrement: 1,
		VendorID: &f.noMail.ID, Vendor: f.noMail,
		UnitCost: decimal.RequireFromString("2.00"),
	}
	f.inventory.items["SKU-4"] = &model.InventoryItem{
		ID: uuid.New(), SKU: "SKU-4", ProductName: "Orphan",
		CurrentStock: 1, ReorderPoint: 5, ReorderQuantity: 5,
		LeadTimeDays: 7, OrderIncrement: 1,
		UnitCost: decimal.RequireFromString("1.00"),
	}

	svc := NewPurchaseOrderService(f.orders, f.inventory, f.vendors, f.courier)
	f.svc = svc.(*poService)
	f.svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *poFixture) createOrder(t *testing.T, skus ...string) *dto.PurchaseOrderResponse {
	t.Helper()
	req := dto.CreatePORequest{VendorID: f.vendor.ID.String()}
	for _, sku := range skus {
		req.Items = append(req.Items, dto.POItemRequest{SKU: sku, Quantity: 3})
	}
	resp, err := f.svc.Create(context.Background(), req, "alice")
	require.NoError(t, err)
	return resp
}

func mustID(t *testing.T, resp *dto.PurchaseOrderResponse) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	return id
}

// ── Suggestions ──────────────────────────────────────────────────────────────

func TestSuggestionsGroupByVendor(t *testing.T) {
	f := newPOFixture(t)

	suggestions, err := f.svc.Suggestions(context.Background())
	require.NoError(t, err)
	require.Len(t, suggestions, 2) // SKU-4 has no vendor and is skipped

	byVendor := map[string]dto.ReorderSuggestion{}
	for _, s := range suggestions {
		byVendor[s.VendorName] = s
	}

	acme := byVendor["Acme Supply"]
	require.Len(t, acme.Items, 2)
	assert.Equal(t, 2, acme.TotalItems)
	// SKU-1 sells 2/day, 2 in stock: one day of cover.
	assert.Equal(t, reorder.UrgencyCritical, acme.Urgency)

	var total decimal.Decimal
	for _, item := range acme.Items {
		assert.Equal(t, item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))).String(), item.TotalCost.String())
		total = total.Add(item.TotalCost)
	}
	assert.Equal(t, total.String(), acme.TotalAmount.String())

	// Most urgent vendor sorts first.
	assert.Equal(t, "Acme Supply", suggestions[0].VendorName)
}

// ── Creation ─────────────────────────────────────────────────────────────────

func TestCreateComputesTotalsAndAssignsNumber(t *testing.T) {
	f := newPOFixture(t)

	resp := f.createOrder(t, "SKU-1", "SKU-2")

	assert.Equal(t, "PO-2025-000001", resp.PONumber)
	assert.Equal(t, model.POStatusDraft, resp.Status)
	assert.Equal(t, "alice", resp.CreatedBy)
	// 3 x 10.00 + 3 x 4.50
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("43.50")),
		"total = %s", resp.TotalAmount)
	require.Len(t, resp.Items, 2)

	// Creation stamps the items' last-order fields.
	assert.Equal(t, 3, f.inventory.items["SKU-1"].LastOrderedQty)
	require.NotNil(t, f.inventory.items["SKU-1"].LastOrderedAt)

	entries, err := f.svc.Audit(context.Background(), mustID(t, resp))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionCreated, entries[0].Action)
	assert.Equal(t, "alice", entries[0].Actor)
}

func TestCreateAppliesAdjustmentsBeforeTotals(t *testing.T) {
	f := newPOFixture(t)

	resp, err := f.svc.Create(context.Background(), dto.CreatePORequest{
		VendorID:    f.vendor.ID.String(),
		Items:       []dto.POItemRequest{{SKU: "SKU-1", Quantity: 10}},
		Adjustments: []dto.Adjustment{{SKU: "SKU-1", Quantity: 4}},
	}, "alice")
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 4, resp.Items[0].Quantity)
	assert.True(t, resp.Items[0].LineTotal.Equal(decimal.NewFromInt(40)))
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(40)))
}

func TestCreateRetriesOnceOnDuplicateNumber(t *testing.T) {
	f := newPOFixture(t)
	f.orders.lastNumber = "PO-2025-000007"
	f.orders.dupeOnce = true

	resp := f.createOrder(t, "SKU-1")
	assert.Equal(t, "PO-2025-000009", resp.PONumber)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()
	line := []dto.POItemRequest{{SKU: "SKU-1", Quantity: 1}}

	_, err := f.svc.Create(ctx, dto.CreatePORequest{VendorID: "not-a-uuid", Items: line}, "alice")
	assert.True(t, apierror.IsValidation(err))

	_, err = f.svc.Create(ctx, dto.CreatePORequest{VendorID: uuid.NewString(), Items: line}, "alice")
	assert.True(t, apierror.IsNotFound(err))

	inactive := f.vendors.add(&model.Vendor{Name: "Gone Inc", Active: false})
	_, err = f.svc.Create(ctx, dto.CreatePORequest{VendorID: inactive.ID.String(), Items: line}, "alice")
	assert.True(t, apierror.IsValidation(err))

	// SKU belonging to a different vendor
	_, err = f.svc.Create(ctx, dto.CreatePORequest{
		VendorID: f.vendor.ID.String(),
		Items:    []dto.POItemRequest{{SKU: "SKU-3", Quantity: 1}},
	}, "alice")
	assert.True(t, apierror.IsValidation(err))

	// Unknown SKU
	_, err = f.svc.Create(ctx, dto.CreatePORequest{
		VendorID: f.vendor.ID.String(),
		Items:    []dto.POItemRequest{{SKU: "NOPE", Quantity: 1}},
	}, "alice")
	assert.True(t, apierror.IsNotFound(err))

	// Duplicate line
	_, err = f.svc.Create(ctx, dto.CreatePORequest{
		VendorID: f.vendor.ID.String(),
		Items:    []dto.POItemRequest{{SKU: "SKU-1", Quantity: 1}, {SKU: "SKU-1", Quantity: 2}},
	}, "alice")
	assert.True(t, apierror.IsValidation(err))
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func TestLifecycleHappyPath(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()
	id := mustID(t, f.createOrder(t, "SKU-1", "SKU-2"))

	resp, err := f.svc.Submit(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.POStatusPendingApproval, resp.Status)

	resp, err = f.svc.Approve(ctx, id, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.POStatusApproved, resp.Status)
	require.NotNil(t, resp.ApprovedBy)
	assert.Equal(t, "bob", *resp.ApprovedBy)
	require.NotNil(t, resp.ApprovedAt)

	resp, err = f.svc.Send(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.POStatusSent, resp.Status)
	require.NotNil(t, resp.SentAt)
	assert.Equal(t, []string{"orders@acme.test"}, f.courier.delivered)

	// Partial receipt leaves the order open.
	resp, err = f.svc.Receive(ctx, id, "carol", dto.ReceivePORequest{
		Lines: []dto.ReceiveLine{{SKU: "SKU-1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.POStatusPartial, resp.Status)
	assert.Nil(t, resp.ReceivedAt)

	// Receiving the remainder closes it.
	resp, err = f.svc.Receive(ctx, id, "carol", dto.ReceivePORequest{
		Lines: []dto.ReceiveLine{{SKU: "SKU-1", Quantity: 2}, {SKU: "SKU-2", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.POStatusReceived, resp.Status)
	require.NotNil(t, resp.ReceivedAt)

	// One audit entry per accepted transition.
	entries, err := f.svc.Audit(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 6)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	assert.Equal(t, []string{
		model.AuditActionCreated,
		model.AuditActionSubmitted,
		model.AuditActionApproved,
		model.AuditActionSent,
		model.AuditActionPartiallyReceived,
		model.AuditActionReceived,
	}, actions)
}

func TestTransitionPreconditions(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()
	id := mustID(t, f.createOrder(t, "SKU-1"))

	// Draft orders cannot be approved, rejected, sent, or received.
	_, err := f.svc.Approve(ctx, id, "bob")
	assert.True(t, apierror.IsValidation(err))
	_, err = f.svc.Reject(ctx, id, "bob", "too expensive")
	assert.True(t, apierror.IsValidation(err))
	_, err = f.svc.Send(ctx, id, "alice")
	assert.True(t, apierror.IsValidation(err))
	_, err = f.svc.Receive(ctx, id, "carol", dto.ReceivePORequest{
		Lines: []dto.ReceiveLine{{SKU: "SKU-1", Quantity: 1}},
	})
	assert.True(t, apierror.IsValidation(err))

	// Submitting twice fails the second time.
	_, err = f.svc.Submit(ctx, id, "alice")
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, id, "alice")
	assert.True(t, apierror.IsValidation(err))
}

func TestRejectRequiresReason(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()
	id := mustID(t, f.createOrder(t, "SKU-1"))
	_, err := f.svc.Submit(ctx, id, "alice")
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, id, "bob", "   ")
	assert.True(t, apierror.IsValidation(err))

	resp, err := f.svc.Reject(ctx, id, "bob", "budget freeze")
	require.NoError(t, err)
	assert.Equal(t, model.POStatusRejected, resp.Status)
	require.NotNil(t, resp.RejectionReason)
	assert.Equal(t, "budget freeze", *resp.RejectionReason)

	// Terminal: nothing moves a rejected order.
	_, err = f.svc.Approve(ctx, id, "bob")
	assert.True(t, apierror.IsValidation(err))
	_, err = f.svc.Cancel(ctx, id, "alice")
	assert.True(t, apierror.IsValidation(err))
}

func TestSendRequiresVendorEmail(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Create(ctx, dto.CreatePORequest{
		VendorID: f.noMail.ID.String(),
		Items:    []dto.POItemRequest{{SKU: "SKU-3", Quantity: 1}},
	}, "alice")
	require.NoError(t, err)
	id := mustID(t, resp)

	_, err = f.svc.Submit(ctx, id, "alice")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, id, "bob")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, id, "alice")
	assert.True(t, apierror.IsValidation(err))
	assert.Empty(t, f.courier.delivered)

	current, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusApproved, current.Status)
}

func TestSendFailureLeavesOrderApproved(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()
	id := mustID(t, f.createOrder(t, "SKU-1"))
	_, err := f.svc.Submit(ctx, id, "alice")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, id, "bob")
	require.NoError(t, err)

	f.courier.err = apierror.ExternalAPI("courier: deliver document", errors.New("smtp timeout"))

	_, err = f.svc.Send(ctx, id, "alice")
	require.Error(t, err)
	assert.Equal(t, apierror.KindExternalAPI, apierror.KindOf(err))

	current, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusApproved, current.Status)
	assert.Nil(t, current.SentAt)

	// No "sent" audit entry was written for the failed attempt.
	entries, err := f.svc.Audit(ctx, id)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, model.AuditActionSent, e.Action)
	}
}

func TestCancelOnlyBeforeSend(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()

	// Approved orders can still be cancelled.
	id := mustID(t, f.createOrder(t, "SKU-1"))
	_, err := f.svc.Submit(ctx, id, "alice")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, id, "bob")
	require.NoError(t, err)
	resp, err := f.svc.Cancel(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.POStatusCancelled, resp.Status)

	// Sent orders cannot.
	id2 := mustID(t, f.createOrder(t, "SKU-2"))
	_, err = f.svc.Submit(ctx, id2, "alice")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, id2, "bob")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, id2, "alice")
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, id2, "alice")
	assert.True(t, apierror.IsValidation(err))
}

func TestReceiveValidatesLines(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()
	id := mustID(t, f.createOrder(t, "SKU-1"))
	_, err := f.svc.Submit(ctx, id, "alice")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, id, "bob")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, id, "alice")
	require.NoError(t, err)

	// SKU not on the order
	_, err = f.svc.Receive(ctx, id, "carol", dto.ReceivePORequest{
		Lines: []dto.ReceiveLine{{SKU: "SKU-2", Quantity: 1}},
	})
	assert.True(t, apierror.IsValidation(err))

	// Over-receipt
	_, err = f.svc.Receive(ctx, id, "carol", dto.ReceivePORequest{
		Lines: []dto.ReceiveLine{{SKU: "SKU-1", Quantity: 4}},
	})
	assert.True(t, apierror.IsValidation(err))

	// Duplicate receipt line
	_, err = f.svc.Receive(ctx, id, "carol", dto.ReceivePORequest{
		Lines: []dto.ReceiveLine{{SKU: "SKU-1", Quantity: 1}, {SKU: "SKU-1", Quantity: 1}},
	})
	assert.True(t, apierror.IsValidation(err))
}

func TestReceiveAddsStock(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()
	id := mustID(t, f.createOrder(t, "SKU-1"))
	_, err := f.svc.Submit(ctx, id, "alice")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, id, "bob")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, id, "alice")
	require.NoError(t, err)

	before := f.inventory.items["SKU-1"].CurrentStock
	resp, err := f.svc.Receive(ctx, id, "carol", dto.ReceivePORequest{
		Lines: []dto.ReceiveLine{{SKU: "SKU-1", Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.POStatusReceived, resp.Status)
	assert.Equal(t, before+3, f.inventory.items["SKU-1"].CurrentStock)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].ReceivedQty)
}
