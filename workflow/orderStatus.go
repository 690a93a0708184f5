package workflow

import (
	"bitbucket.org/papermoa/trade_backend/models"
)

// Pure status-machine helpers. Two independent request paths (offer when
// the seller created the order, order when the buyer did) share the
// ACCEPTED/CANCELLED tail.

func isOfferStatus(status models.OrderStatus) bool {
	switch status {
	case models.OrderStatusOfferPreparing,
		models.OrderStatusOfferRequested,
		models.OrderStatusOfferRejected,
		models.OrderStatusOfferDeleted:
		return true
	}
	return false
}

func isPreparingStatus(status models.OrderStatus) bool {
	return status == models.OrderStatusOrderPreparing || status == models.OrderStatusOfferPreparing
}

func isRequestedStatus(status models.OrderStatus) bool {
	return status == models.OrderStatusOrderRequested || status == models.OrderStatusOfferRequested
}

func isRejectedStatus(status models.OrderStatus) bool {
	return status == models.OrderStatusOrderRejected || status == models.OrderStatusOfferRejected
}

// isEditableStatus covers every state where commercial fields may still
// change (subject to the per-actor authorization rule).
func isEditableStatus(status models.OrderStatus) bool {
	return isPreparingStatus(status) || isRequestedStatus(status) || isRejectedStatus(status) ||
		status == models.OrderStatusAccepted
}

func requestedStatusOf(status models.OrderStatus) (models.OrderStatus, bool) {
	switch status {
	case models.OrderStatusOrderPreparing:
		return models.OrderStatusOrderRequested, true
	case models.OrderStatusOfferPreparing:
		return models.OrderStatusOfferRequested, true
	}
	return "", false
}

func rejectedStatusOf(status models.OrderStatus) (models.OrderStatus, bool) {
	switch status {
	case models.OrderStatusOrderRequested:
		return models.OrderStatusOrderRejected, true
	case models.OrderStatusOfferRequested:
		return models.OrderStatusOfferRejected, true
	}
	return "", false
}

// reset regresses a requested or rejected order back to its preparing
// state on the same path.
func resetStatusOf(status models.OrderStatus) (models.OrderStatus, bool) {
	switch status {
	case models.OrderStatusOrderRequested, models.OrderStatusOrderRejected:
		return models.OrderStatusOrderPreparing, true
	case models.OrderStatusOfferRequested, models.OrderStatusOfferRejected:
		return models.OrderStatusOfferPreparing, true
	}
	return "", false
}

func deletedStatusOf(status models.OrderStatus) (models.OrderStatus, bool) {
	switch status {
	case models.OrderStatusOrderPreparing:
		return models.OrderStatusOrderDeleted, true
	case models.OrderStatusOfferPreparing:
		return models.OrderStatusOfferDeleted, true
	}
	return "", false
}

// canAccept: an order is acceptable from its requested state, or straight
// from preparing when the counterparty is proxy-managed and cannot answer
// the request itself.
func canAccept(status models.OrderStatus, counterpartyManaged bool) bool {
	if isRequestedStatus(status) {
		return true
	}
	return counterpartyManaged && isPreparingStatus(status)
}

func requestHistoryTypeOf(status models.OrderStatus) models.OrderHistoryType {
	if isOfferStatus(status) {
		return models.OrderHistoryTypeOfferRequest
	}
	return models.OrderHistoryTypeOrderRequest
}

func rejectHistoryTypeOf(status models.OrderStatus) models.OrderHistoryType {
	if isOfferStatus(status) {
		return models.OrderHistoryTypeOfferRequestReject
	}
	return models.OrderHistoryTypeOrderRequestReject
}

func resetHistoryTypeOf(status models.OrderStatus) models.OrderHistoryType {
	if isOfferStatus(status) {
		return models.OrderHistoryTypeOfferRequestCancel
	}
	return models.OrderHistoryTypeOrderRequestCancel
}
