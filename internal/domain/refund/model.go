// Package refund returns sold units to stock.
// A sale line can never have more returned than was sold.
package refund

import (
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
)

// Return records one processed return request.
type Return struct {
	ID         id.ID       `db:"id" json:"id"`
	SaleID     id.ID       `db:"sale_id" json:"saleId"`
	Amount     types.Money `db:"amount" json:"amount"`
	Note       *string     `db:"note" json:"note,omitempty"`
	OperatorID *string     `db:"operator_id" json:"operatorId,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	Items      []Item      `db:"-" json:"items"`
}

// Item is one returned line.
type Item struct {
	ReturnID   id.ID          `db:"return_id" json:"-"`
	SaleItemID id.ID          `db:"sale_item_id" json:"saleItemId"`
	BatchID    id.ID          `db:"batch_id" json:"batchId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	Amount     types.Money    `db:"amount" json:"amount"`
}

// ReturnProcessedEvent is the outbox payload for a return.
type ReturnProcessedEvent struct {
	ReturnID id.ID       `json:"returnId"`
	SaleID   id.ID       `json:"saleId"`
	Amount   types.Money `json:"amount"`
	Items    []Item      `json:"items"`
}
