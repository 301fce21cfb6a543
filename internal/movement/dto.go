package movement

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockInRequest is the wire shape of one goods receipt.
type StockInRequest struct {
	SupplierID    int64         `json:"supplierId" validate:"required,gt=0"`
	StockKeeperID int64         `json:"stockKeeperId" validate:"required,gt=0"`
	ReceivedDate  time.Time     `json:"receivedDate" validate:"required"`
	Remarks       string        `json:"remarks"`
	Items         []StockInItem `json:"items" validate:"required,min=1,dive"`
}

// StockInItem is one received line.
type StockInItem struct {
	ProductID        int64           `json:"productId" validate:"required,gt=0"`
	VariationID      int64           `json:"variationId" validate:"gte=0"`
	QuantityReceived int64           `json:"quantityReceived" validate:"required,gt=0"`
	UnitCost         decimal.Decimal `json:"unitCost"`
	Location         string          `json:"location"`
}

// StockInResponse reports a committed goods receipt.
type StockInResponse struct {
	GRNID        int64           `json:"grnId"`
	GRNNumber    string          `json:"grnNumber"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	CreatedAt    time.Time       `json:"createdAt"`
	Details      []StockInDetail `json:"details"`
	StockUpdates []StockUpdate   `json:"stockUpdates"`
}

// StockInDetail echoes one committed receipt line.
type StockInDetail struct {
	GRNDetailID      int64           `json:"grnDetailId"`
	ProductID        int64           `json:"productId"`
	QuantityReceived int64           `json:"quantityReceived"`
	UnitCost         decimal.Decimal `json:"unitCost"`
	SubTotal         decimal.Decimal `json:"subTotal"`
}

// StockOutRequest is the wire shape of one goods issue.
type StockOutRequest struct {
	StockKeeperID int64          `json:"stockKeeperId" validate:"required,gt=0"`
	IssuedTo      string         `json:"issuedTo" validate:"required"`
	IssueReason   string         `json:"issueReason" validate:"required"`
	IssueDate     time.Time      `json:"issueDate" validate:"required"`
	Remarks       string         `json:"remarks"`
	Items         []StockOutItem `json:"items" validate:"required,min=1,dive"`
}

// StockOutItem is one issued line.
type StockOutItem struct {
	ProductID      int64           `json:"productId" validate:"required,gt=0"`
	VariationID    int64           `json:"variationId" validate:"gte=0"`
	QuantityIssued int64           `json:"quantityIssued" validate:"required,gt=0"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	Location       string          `json:"location"`
}

// StockOutResponse reports a committed goods issue.
type StockOutResponse struct {
	GINID        int64            `json:"ginId"`
	GINNumber    string           `json:"ginNumber"`
	CreatedAt    time.Time        `json:"createdAt"`
	Details      []StockOutDetail `json:"details"`
	StockUpdates []StockUpdate    `json:"stockUpdates"`
}

// StockOutDetail echoes one committed issue line.
type StockOutDetail struct {
	GINDetailID    int64           `json:"ginDetailId"`
	ProductID      int64           `json:"productId"`
	QuantityIssued int64           `json:"quantityIssued"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	SubTotal       decimal.Decimal `json:"subTotal"`
}

// StockUpdate is the per-line before/after snapshot of the affected key.
type StockUpdate struct {
	ProductID      int64 `json:"productId"`
	VariationID    int64 `json:"variationId"`
	QuantityBefore int64 `json:"quantityBefore"`
	QuantityAfter  int64 `json:"quantityAfter"`
}
