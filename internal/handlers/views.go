package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

const dateLayout = "2006-01-02"

type itemView struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type historyView struct {
	Status    orders.Status `json:"status"`
	ChangedAt time.Time     `json:"changed_at"`
	ChangedBy string        `json:"changed_by"`
	Note      string        `json:"note"`
}

type orderView struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Status            orders.Status    `json:"status"`
	StatusDescription string           `json:"status_description"`
	AllowedNext       []orders.Status  `json:"allowed_next"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	ItemCount         int              `json:"item_count"`
	ShippingAddress   string           `json:"shipping_address"`
	BillingAddress    string           `json:"billing_address"`
	PaymentMethod     string           `json:"payment_method"`
	PaymentStatus     string           `json:"payment_status"`
	TrackingNumber    *string          `json:"tracking_number,omitempty"`
	EstimatedDelivery *string          `json:"estimated_delivery,omitempty"`
	CancelReason      *string          `json:"cancel_reason,omitempty"`
	RefundAmount      *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundMethod      *string          `json:"refund_method,omitempty"`
	RefundedAt        *time.Time       `json:"refunded_at,omitempty"`
	PendingReturnID   string           `json:"pending_return_id,omitempty"`
	Items             []itemView       `json:"items"`
	History           []historyView    `json:"history"`
}

type returnView struct {
	ID                string              `json:"id"`
	OrderID           string              `json:"order_id"`
	UserID            string              `json:"user_id"`
	RequestDate       time.Time           `json:"request_date"`
	Reason            string              `json:"reason"`
	Status            orders.ReturnStatus `json:"status"`
	StatusDescription string              `json:"status_description"`
	Resolution        *string             `json:"resolution,omitempty"`
	RefundAmount      *decimal.Decimal    `json:"refund_amount,omitempty"`
	RefundMethod      *string             `json:"refund_method,omitempty"`
	ProcessedDate     *time.Time          `json:"processed_date,omitempty"`
	ProcessedBy       *string             `json:"processed_by,omitempty"`
}

func toOrderView(o orders.Order) orderView {
	v := orderView{
		ID:                o.ID,
		UserID:            o.UserID,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		Status:            o.Status,
		StatusDescription: o.Status.Description(),
		AllowedNext:       append([]orders.Status{}, orders.AllowedTargets(o.Status)...),
		TotalAmount:       o.TotalAmount,
		ItemCount:         o.ItemCount(),
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     string(o.PaymentStatus),
		TrackingNumber:    o.TrackingNumber,
		CancelReason:      o.CancelReason,
		RefundAmount:      o.RefundAmount,
		RefundMethod:      o.RefundMethod,
		RefundedAt:        o.RefundedAt,
		PendingReturnID:   o.PendingReturnID,
		Items:             make([]itemView, 0, len(o.Items)),
		History:           toHistoryViews(o.History),
	}
	if o.EstimatedDelivery != nil {
		d := o.EstimatedDelivery.Format(dateLayout)
		v.EstimatedDelivery = &d
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, itemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Subtotal:    it.Subtotal(),
		})
	}
	return v
}

func toHistoryViews(entries []orders.HistoryEntry) []historyView {
	out := make([]historyView, 0, len(entries))
	for _, h := range entries {
		out = append(out, historyView{Status: h.Status, ChangedAt: h.ChangedAt, ChangedBy: h.ChangedBy, Note: h.Note})
	}
	return out
}

func toReturnView(r orders.ReturnRequest) returnView {
	return returnView{
		ID:                r.ID,
		OrderID:           r.OrderID,
		UserID:            r.UserID,
		RequestDate:       r.RequestDate,
		Reason:            r.Reason,
		Status:            r.Status,
		StatusDescription: r.Status.Description(),
		Resolution:        r.Resolution,
		RefundAmount:      r.RefundAmount,
		RefundMethod:      r.RefundMethod,
		ProcessedDate:     r.ProcessedDate,
		ProcessedBy:       r.ProcessedBy,
	}
}
