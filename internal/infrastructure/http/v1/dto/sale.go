package dto

import (
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/refund"
	"tillpoint/internal/domain/sale"
)

// SaleLineRequest is one line of POST /sales.
type SaleLineRequest struct {
	BatchID           id.ID           `json:"batchId" binding:"required"`
	Quantity          *types.Quantity `json:"quantity" binding:"required,max=1000000000000"`
	UnitPriceOverride *types.Money    `json:"unitPriceOverride"`
}

// RecordSaleRequest is the body of POST /sales.
type RecordSaleRequest struct {
	Items    []SaleLineRequest `json:"items" binding:"required,dive"`
	Discount *types.Money      `json:"discount"`
}

// ToInput converts to the service input. An empty item list is left for the service to reject.
func (r *RecordSaleRequest) ToInput() sale.RecordInput {
	in := sale.RecordInput{
		Items:    make([]sale.LineInput, len(r.Items)),
		Discount: types.Zero(),
	}
	if r.Discount != nil {
		in.Discount = *r.Discount
	}
	for i, it := range r.Items {
		in.Items[i] = sale.LineInput{
			BatchID:           it.BatchID,
			Quantity:          *it.Quantity,
			UnitPriceOverride: it.UnitPriceOverride,
		}
	}
	return in
}

// SaleListQuery is the query of GET /sales.
type SaleListQuery struct {
	PaginationRequest
	RangeQuery
}

// SaleItemResponse is one sale line in responses.
type SaleItemResponse struct {
	ID               string           `json:"id"`
	LineNo           int              `json:"lineNo"`
	BatchID          string           `json:"batchId"`
	ProductID        string           `json:"productId"`
	Quantity         types.Quantity   `json:"quantity"`
	ReturnedQuantity types.Quantity   `json:"returnedQuantity"`
	CostPrice        types.Money      `json:"costPrice"`
	SellingPrice     types.Money      `json:"sellingPrice"`
	MRP              types.Money      `json:"mrp"`
	PriceSource      sale.PriceSource `json:"priceSource"`
	PromotionID      *string          `json:"promotionId,omitempty"`
	LineTotal        types.Money      `json:"lineTotal"`
	Profit           types.Money      `json:"profit"`
}

// SaleResponse is a sale in responses. Items is omitted in listings.
type SaleResponse struct {
	ID          string             `json:"id"`
	Number      string             `json:"number"`
	SoldAt      time.Time          `json:"soldAt"`
	Subtotal    types.Money        `json:"subtotal"`
	Discount    types.Money        `json:"discount"`
	Total       types.Money        `json:"total"`
	GrossProfit types.Money        `json:"grossProfit"`
	OperatorID  *string            `json:"operatorId,omitempty"`
	Items       []SaleItemResponse `json:"items,omitempty"`
}

// FromSale converts a sale with its lines.
func FromSale(s *sale.Sale) SaleResponse {
	resp := FromSaleHeader(s)
	resp.Items = make([]SaleItemResponse, len(s.Items))
	for i, it := range s.Items {
		item := SaleItemResponse{
			ID:               it.ID.String(),
			LineNo:           it.LineNo,
			BatchID:          it.BatchID.String(),
			ProductID:        it.ProductID.String(),
			Quantity:         it.Quantity,
			ReturnedQuantity: it.ReturnedQuantity,
			CostPrice:        it.CostPrice,
			SellingPrice:     it.SellingPrice,
			MRP:              it.MRP,
			PriceSource:      it.PriceSource,
			LineTotal:        it.LineTotal,
			Profit:           it.Profit,
		}
		if it.PromotionID != nil {
			promo := it.PromotionID.String()
			item.PromotionID = &promo
		}
		resp.Items[i] = item
	}
	return resp
}

// FromSaleHeader converts a sale without lines.
func FromSaleHeader(s *sale.Sale) SaleResponse {
	return SaleResponse{
		ID:          s.ID.String(),
		Number:      s.Number,
		SoldAt:      s.SoldAt,
		Subtotal:    s.Subtotal,
		Discount:    s.Discount,
		Total:       s.Total,
		GrossProfit: s.GrossProfit,
		OperatorID:  s.OperatorID,
	}
}

// --- Returns ---

// ReturnLineRequest is one line of POST /sales/:id/returns.
type ReturnLineRequest struct {
	SaleItemID id.ID           `json:"saleItemId" binding:"required"`
	Quantity   *types.Quantity `json:"quantity" binding:"required,max=1000000000000"`
}

// ProcessReturnRequest is the body of POST /sales/:id/returns.
type ProcessReturnRequest struct {
	Items []ReturnLineRequest `json:"items" binding:"required,min=1,dive"`
	Note  *string             `json:"note"`
}

// ToInput converts to the service input.
func (r *ProcessReturnRequest) ToInput(saleID id.ID) refund.ProcessInput {
	in := refund.ProcessInput{
		SaleID: saleID,
		Items:  make([]refund.LineInput, len(r.Items)),
		Note:   r.Note,
	}
	for i, it := range r.Items {
		in.Items[i] = refund.LineInput{SaleItemID: it.SaleItemID, Quantity: *it.Quantity}
	}
	return in
}

// ReturnResponse is a processed return in responses.
type ReturnResponse struct {
	ID         string               `json:"id"`
	SaleID     string               `json:"saleId"`
	Amount     types.Money          `json:"amount"`
	Note       *string              `json:"note,omitempty"`
	OperatorID *string              `json:"operatorId,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
	Items      []ReturnItemResponse `json:"items"`
}

// ReturnItemResponse is one returned line.
type ReturnItemResponse struct {
	SaleItemID string         `json:"saleItemId"`
	BatchID    string         `json:"batchId"`
	Quantity   types.Quantity `json:"quantity"`
	Amount     types.Money    `json:"amount"`
}

// FromReturn converts a return.
func FromReturn(r *refund.Return) ReturnResponse {
	resp := ReturnResponse{
		ID:         r.ID.String(),
		SaleID:     r.SaleID.String(),
		Amount:     r.Amount,
		Note:       r.Note,
		OperatorID: r.OperatorID,
		CreatedAt:  r.CreatedAt,
		Items:      make([]ReturnItemResponse, len(r.Items)),
	}
	for i, it := range r.Items {
		resp.Items[i] = ReturnItemResponse{
			SaleItemID: it.SaleItemID.String(),
			BatchID:    it.BatchID.String(),
			Quantity:   it.Quantity,
			Amount:     it.Amount,
		}
	}
	return resp
}
