package workflow

import (
	"testing"

	"bitbucket.org/papermoa/trade_backend/models"
)

func TestRequestedStatusOf(t *testing.T) {
	cases := []struct {
		from models.OrderStatus
		to   models.OrderStatus
		ok   bool
	}{
		{models.OrderStatusOrderPreparing, models.OrderStatusOrderRequested, true},
		{models.OrderStatusOfferPreparing, models.OrderStatusOfferRequested, true},
		{models.OrderStatusOrderRequested, "", false},
		{models.OrderStatusOrderRejected, "", false},
		{models.OrderStatusAccepted, "", false},
		{models.OrderStatusCancelled, "", false},
	}
	for _, tc := range cases {
		got, ok := requestedStatusOf(tc.from)
		if ok != tc.ok || got != tc.to {
			t.Fatalf("requestedStatusOf(%s) = %s,%v; want %s,%v", tc.from, got, ok, tc.to, tc.ok)
		}
	}
}

func TestResetStatusOf_ReturnsToSamePath(t *testing.T) {
	cases := []struct {
		from models.OrderStatus
		to   models.OrderStatus
		ok   bool
	}{
		{models.OrderStatusOrderRequested, models.OrderStatusOrderPreparing, true},
		{models.OrderStatusOrderRejected, models.OrderStatusOrderPreparing, true},
		{models.OrderStatusOfferRequested, models.OrderStatusOfferPreparing, true},
		{models.OrderStatusOfferRejected, models.OrderStatusOfferPreparing, true},
		{models.OrderStatusOrderPreparing, "", false},
		{models.OrderStatusAccepted, "", false},
		{models.OrderStatusCancelled, "", false},
	}
	for _, tc := range cases {
		got, ok := resetStatusOf(tc.from)
		if ok != tc.ok || got != tc.to {
			t.Fatalf("resetStatusOf(%s) = %s,%v; want %s,%v", tc.from, got, ok, tc.to, tc.ok)
		}
	}
}

func TestRejectRequestRoundTrip(t *testing.T) {
	// request -> reject -> reset lands back on the original preparing
	// status for both paths
	for _, preparing := range []models.OrderStatus{
		models.OrderStatusOrderPreparing,
		models.OrderStatusOfferPreparing,
	} {
		requested, ok := requestedStatusOf(preparing)
		if !ok {
			t.Fatalf("cannot request from %s", preparing)
		}
		rejected, ok := rejectedStatusOf(requested)
		if !ok {
			t.Fatalf("cannot reject from %s", requested)
		}
		reset, ok := resetStatusOf(rejected)
		if !ok {
			t.Fatalf("cannot reset from %s", rejected)
		}
		if reset != preparing {
			t.Fatalf("round trip from %s ended on %s", preparing, reset)
		}
	}
}

func TestDeletedStatusOf_OnlyFromPreparing(t *testing.T) {
	for _, s := range []models.OrderStatus{
		models.OrderStatusOrderRequested,
		models.OrderStatusOfferRejected,
		models.OrderStatusAccepted,
		models.OrderStatusCancelled,
	} {
		if _, ok := deletedStatusOf(s); ok {
			t.Fatalf("deletion should not be possible from %s", s)
		}
	}
	if got, ok := deletedStatusOf(models.OrderStatusOrderPreparing); !ok || got != models.OrderStatusOrderDeleted {
		t.Fatalf("deletedStatusOf(ORDER_PREPARING) = %s,%v", got, ok)
	}
	if got, ok := deletedStatusOf(models.OrderStatusOfferPreparing); !ok || got != models.OrderStatusOfferDeleted {
		t.Fatalf("deletedStatusOf(OFFER_PREPARING) = %s,%v", got, ok)
	}
}

func TestCanAccept(t *testing.T) {
	cases := []struct {
		status  models.OrderStatus
		managed bool
		want    bool
	}{
		{models.OrderStatusOrderRequested, false, true},
		{models.OrderStatusOfferRequested, false, true},
		{models.OrderStatusOrderPreparing, false, false},
		{models.OrderStatusOrderPreparing, true, true},
		{models.OrderStatusOfferPreparing, true, true},
		{models.OrderStatusOrderRejected, false, false},
		{models.OrderStatusOrderRejected, true, false},
		{models.OrderStatusAccepted, true, false},
	}
	for _, tc := range cases {
		if got := canAccept(tc.status, tc.managed); got != tc.want {
			t.Fatalf("canAccept(%s, managed=%v) = %v; want %v", tc.status, tc.managed, got, tc.want)
		}
	}
}

func TestIsEditableStatus(t *testing.T) {
	editable := []models.OrderStatus{
		models.OrderStatusOrderPreparing,
		models.OrderStatusOfferPreparing,
		models.OrderStatusOrderRequested,
		models.OrderStatusOfferRequested,
		models.OrderStatusOrderRejected,
		models.OrderStatusOfferRejected,
		models.OrderStatusAccepted,
	}
	for _, s := range editable {
		if !isEditableStatus(s) {
			t.Fatalf("%s should be editable", s)
		}
	}
	for _, s := range []models.OrderStatus{
		models.OrderStatusOrderDeleted,
		models.OrderStatusOfferDeleted,
		models.OrderStatusCancelled,
	} {
		if isEditableStatus(s) {
			t.Fatalf("%s should not be editable", s)
		}
	}
}

func TestHistoryTypePerPath(t *testing.T) {
	if requestHistoryTypeOf(models.OrderStatusOfferPreparing) != models.OrderHistoryTypeOfferRequest {
		t.Fatal("offer path request history mismatch")
	}
	if requestHistoryTypeOf(models.OrderStatusOrderPreparing) != models.OrderHistoryTypeOrderRequest {
		t.Fatal("order path request history mismatch")
	}
	if rejectHistoryTypeOf(models.OrderStatusOfferRequested) != models.OrderHistoryTypeOfferRequestReject {
		t.Fatal("offer path reject history mismatch")
	}
	if resetHistoryTypeOf(models.OrderStatusOrderRequested) != models.OrderHistoryTypeOrderRequestCancel {
		t.Fatal("order path reset history mismatch")
	}
}
