package models

type OrderType string

const (
	OrderTypeNormal           OrderType = "NORMAL"
	OrderTypeOutsourceProcess OrderType = "OUTSOURCE_PROCESS"
	OrderTypeDeposit          OrderType = "DEPOSIT"
	OrderTypeReturn           OrderType = "RETURN"
	OrderTypeRefund           OrderType = "REFUND"
	OrderTypeEtc              OrderType = "ETC"
)

type OrderStatus string

const (
	OrderStatusOrderPreparing OrderStatus = "ORDER_PREPARING"
	OrderStatusOrderRequested OrderStatus = "ORDER_REQUESTED"
	OrderStatusOrderRejected  OrderStatus = "ORDER_REJECTED"
	OrderStatusOrderDeleted   OrderStatus = "ORDER_DELETED"
	OrderStatusOfferPreparing OrderStatus = "OFFER_PREPARING"
	OrderStatusOfferRequested OrderStatus = "OFFER_REQUESTED"
	OrderStatusOfferRejected  OrderStatus = "OFFER_REJECTED"
	OrderStatusOfferDeleted   OrderStatus = "OFFER_DELETED"
	OrderStatusAccepted       OrderStatus = "ACCEPTED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

type StockEventStatus string

const (
	StockEventStatusPending   StockEventStatus = "PENDING"
	StockEventStatusNormal    StockEventStatus = "NORMAL"
	StockEventStatusCancelled StockEventStatus = "CANCELLED"
)

type DepositEventStatus string

const (
	DepositEventStatusNormal    DepositEventStatus = "NORMAL"
	DepositEventStatusCancelled DepositEventStatus = "CANCELLED"
)

type PlanType string

const (
	PlanTypeTradeNormalSeller           PlanType = "TRADE_NORMAL_SELLER"
	PlanTypeTradeNormalBuyer            PlanType = "TRADE_NORMAL_BUYER"
	PlanTypeTradeOutsourceProcessSeller PlanType = "TRADE_OUTSOURCE_PROCESS_SELLER"
	PlanTypeTradeOutsourceProcessBuyer  PlanType = "TRADE_OUTSOURCE_PROCESS_BUYER"
	PlanTypeReturnSeller                PlanType = "RETURN_SELLER"
	PlanTypeReturnBuyer                 PlanType = "RETURN_BUYER"
)

type PlanStatus string

const (
	PlanStatusPreparing   PlanStatus = "PREPARING"
	PlanStatusProgressing PlanStatus = "PROGRESSING"
	PlanStatusProgressed  PlanStatus = "PROGRESSED"
	PlanStatusCancelled   PlanStatus = "CANCELLED"
)

type TaskType string

const (
	TaskTypeRelease TaskType = "RELEASE"
)

type TaskStatus string

const (
	TaskStatusPreparing   TaskStatus = "PREPARING"
	TaskStatusProgressing TaskStatus = "PROGRESSING"
	TaskStatusProgressed  TaskStatus = "PROGRESSED"
	TaskStatusCancelled   TaskStatus = "CANCELLED"
)

type PackagingType string

const (
	PackagingTypeSkid PackagingType = "SKID"
	PackagingTypeReam PackagingType = "REAM"
	PackagingTypeBox  PackagingType = "BOX"
	PackagingTypeRoll PackagingType = "ROLL"
)

type OfficialPriceType string

const (
	OfficialPriceTypeNone       OfficialPriceType = "NONE"
	OfficialPriceTypeManualNone OfficialPriceType = "MANUAL_NONE"
	OfficialPriceTypeRetail     OfficialPriceType = "RETAIL"
	OfficialPriceTypeWholesale  OfficialPriceType = "WHOLESALE"
)

type PriceUnit string

const (
	PriceUnitWonPerTon   PriceUnit = "WON_PER_TON"
	PriceUnitWonPerBox   PriceUnit = "WON_PER_BOX"
	PriceUnitWonPerReam  PriceUnit = "WON_PER_REAM"
	PriceUnitWonPerSheet PriceUnit = "WON_PER_SHEET"
)

type DiscountType string

const (
	DiscountTypeNone       DiscountType = "NONE"
	DiscountTypeManualNone DiscountType = "MANUAL_NONE"
	DiscountTypeDefault    DiscountType = "DEFAULT"
	DiscountTypeSpecial    DiscountType = "SPECIAL"
)

type OrderHistoryType string

const (
	OrderHistoryTypeCreate             OrderHistoryType = "CREATE"
	OrderHistoryTypeOrderRequest       OrderHistoryType = "ORDER_REQUEST"
	OrderHistoryTypeOfferRequest       OrderHistoryType = "OFFER_REQUEST"
	OrderHistoryTypeOrderRequestReject OrderHistoryType = "ORDER_REQUEST_REJECTED"
	OrderHistoryTypeOfferRequestReject OrderHistoryType = "OFFER_REQUEST_REJECTED"
	OrderHistoryTypeOrderRequestCancel OrderHistoryType = "ORDER_REQUEST_CANCELLED"
	OrderHistoryTypeOfferRequestCancel OrderHistoryType = "OFFER_REQUEST_CANCELLED"
	OrderHistoryTypeAccept             OrderHistoryType = "ACCEPTED"
	OrderHistoryTypeOrderCancel        OrderHistoryType = "ORDER_CANCELLED"
)
