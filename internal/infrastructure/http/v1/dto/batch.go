package dto

import (
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/batch"
	"tillpoint/internal/domain/pricing"
)

// WholesaleTerms is the optional wholesale price of a batch.
type WholesaleTerms struct {
	Price       *types.Money    `json:"price" binding:"required"`
	MinQuantity *types.Quantity `json:"minQuantity" binding:"required,max=1000000000000"`
}

func (w *WholesaleTerms) toDomain() *pricing.Wholesale {
	if w == nil {
		return nil
	}
	return &pricing.Wholesale{Price: *w.Price, MinQuantity: *w.MinQuantity}
}

// CreateBatchRequest is the body of POST /products/:id/batches.
type CreateBatchRequest struct {
	Code         *string         `json:"code"`
	Quantity     *types.Quantity `json:"quantity" binding:"required,max=1000000000000"`
	CostPrice    *types.Money    `json:"costPrice" binding:"required"`
	SellingPrice *types.Money    `json:"sellingPrice" binding:"required"`
	MRP          *types.Money    `json:"mrp" binding:"required"`
	ExpiryDate   *Date           `json:"expiryDate"`
	Wholesale    *WholesaleTerms `json:"wholesale"`
}

// ToInput converts to the service input.
func (r *CreateBatchRequest) ToInput(productID id.ID) batch.CreateInput {
	return batch.CreateInput{
		ProductID:    productID,
		Code:         r.Code,
		Quantity:     *r.Quantity,
		CostPrice:    *r.CostPrice,
		SellingPrice: *r.SellingPrice,
		MRP:          *r.MRP,
		ExpiryDate:   DatePtr(r.ExpiryDate),
		Wholesale:    r.Wholesale.toDomain(),
	}
}

// UpdatePricingRequest is the body of PUT /batches/:id/pricing.
type UpdatePricingRequest struct {
	CostPrice    *types.Money `json:"costPrice" binding:"required"`
	SellingPrice *types.Money `json:"sellingPrice" binding:"required"`
	MRP          *types.Money `json:"mrp" binding:"required"`
}

// ToInput converts to the service input.
func (r *UpdatePricingRequest) ToInput() batch.PricingInput {
	return batch.PricingInput{
		CostPrice:    *r.CostPrice,
		SellingPrice: *r.SellingPrice,
		MRP:          *r.MRP,
	}
}

// StockChangeRequest is the body of POST /batches/:id/add-stock and /adjust.
type StockChangeRequest struct {
	Quantity *types.Quantity `json:"quantity" binding:"required,min=-1000000000000,max=1000000000000"`
	Note     *string         `json:"note"`
}

// BatchResponse is a batch in API responses.
type BatchResponse struct {
	ID              string         `json:"id"`
	ProductID       string         `json:"productId"`
	Code            string         `json:"code"`
	Quantity        types.Quantity `json:"quantity"`
	InitialQuantity types.Quantity `json:"initialQuantity"`
	CostPrice       types.Money    `json:"costPrice"`
	SellingPrice    types.Money    `json:"sellingPrice"`
	MRP             types.Money    `json:"mrp"`
	ExpiryDate      *Date          `json:"expiryDate,omitempty"`
	Wholesale       *WholesaleView `json:"wholesale,omitempty"`
	Version         int            `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// WholesaleView is the wholesale terms in responses.
type WholesaleView struct {
	Price       types.Money    `json:"price"`
	MinQuantity types.Quantity `json:"minQuantity"`
}

// FromBatch converts a batch to its response.
func FromBatch(b *batch.Batch) BatchResponse {
	resp := BatchResponse{
		ID:              b.ID.String(),
		ProductID:       b.ProductID.String(),
		Code:            b.Code,
		Quantity:        b.Quantity,
		InitialQuantity: b.InitialQuantity,
		CostPrice:       b.CostPrice,
		SellingPrice:    b.SellingPrice,
		MRP:             b.MRP,
		Version:         b.Version,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.ExpiryDate != nil {
		resp.ExpiryDate = &Date{Time: *b.ExpiryDate}
	}
	if w := b.Wholesale(); w != nil {
		resp.Wholesale = &WholesaleView{Price: w.Price, MinQuantity: w.MinQuantity}
	}
	return resp
}

// FromBatches converts a batch list.
func FromBatches(bs []*batch.Batch) []BatchResponse {
	out := make([]BatchResponse, len(bs))
	for i, b := range bs {
		out[i] = FromBatch(b)
	}
	return out
}
