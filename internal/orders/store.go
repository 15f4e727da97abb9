package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderlifecycle/internal/aws"
)

// createdAtLayout sorts lexicographically, which the user index relies on.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// DynamoTables names the tables and index used by DynamoStore.
type DynamoTables struct {
	Orders  string
	Returns string
	// UserIndex is a GSI on the orders table keyed by user_id with created_at as sort key.
	UserIndex string
}

// DynamoStore persists orders and returns in DynamoDB. Items and history are
// embedded in the order item so each order mutation is a single conditional write.
type DynamoStore struct {
	client aws.DynamoDBAPI
	tables DynamoTables
}

// NewDynamoStore creates a DynamoDB backed Store.
func NewDynamoStore(client aws.DynamoDBAPI, tables DynamoTables) *DynamoStore {
	return &DynamoStore{client: client, tables: tables}
}

type orderRecord struct {
	OrderID           string          `dynamodbav:"order_id"`
	UserID            string          `dynamodbav:"user_id"`
	CreatedAt         string          `dynamodbav:"created_at"`
	UpdatedAt         time.Time       `dynamodbav:"updated_at"`
	TotalAmount       string          `dynamodbav:"total_amount"`
	Status            Status          `dynamodbav:"status"`
	ShippingAddress   string          `dynamodbav:"shipping_address"`
	BillingAddress    string          `dynamodbav:"billing_address"`
	PaymentMethod     string          `dynamodbav:"payment_method"`
	PaymentStatus     PaymentStatus   `dynamodbav:"payment_status"`
	TrackingNumber    *string         `dynamodbav:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time      `dynamodbav:"estimated_delivery,omitempty"`
	CancelReason      *string         `dynamodbav:"cancel_reason,omitempty"`
	RefundAmount      *string         `dynamodbav:"refund_amount,omitempty"`
	RefundMethod      *string         `dynamodbav:"refund_method,omitempty"`
	RefundedAt        *time.Time      `dynamodbav:"refunded_at,omitempty"`
	PendingReturnID   string          `dynamodbav:"pending_return_id,omitempty"`
	Items             []itemRecord    `dynamodbav:"items"`
	History           []historyRecord `dynamodbav:"history"`
}

type itemRecord struct {
	ItemID      string `dynamodbav:"item_id"`
	ProductID   string `dynamodbav:"product_id"`
	ProductName string `dynamodbav:"product_name"`
	Quantity    int    `dynamodbav:"quantity"`
	UnitPrice   string `dynamodbav:"unit_price"`
	Discount    string `dynamodbav:"discount"`
}

type historyRecord struct {
	Status    Status    `dynamodbav:"status"`
	ChangedAt time.Time `dynamodbav:"changed_at"`
	ChangedBy string    `dynamodbav:"changed_by"`
	Note      string    `dynamodbav:"note,omitempty"`
}

type returnRecord struct {
	ReturnID      string       `dynamodbav:"return_id"`
	OrderID       string       `dynamodbav:"order_id"`
	UserID        string       `dynamodbav:"user_id"`
	RequestDate   time.Time    `dynamodbav:"request_date"`
	Reason        string       `dynamodbav:"reason"`
	Status        ReturnStatus `dynamodbav:"status"`
	Resolution    *string      `dynamodbav:"resolution,omitempty"`
	RefundAmount  *string      `dynamodbav:"refund_amount,omitempty"`
	RefundMethod  *string      `dynamodbav:"refund_method,omitempty"`
	ProcessedDate *time.Time   `dynamodbav:"processed_date,omitempty"`
	ProcessedBy   *string      `dynamodbav:"processed_by,omitempty"`
}

func toOrderRecord(o Order) orderRecord {
	rec := orderRecord{
		OrderID:           o.ID,
		UserID:            o.UserID,
		CreatedAt:         o.CreatedAt.UTC().Format(createdAtLayout),
		UpdatedAt:         o.UpdatedAt.UTC(),
		TotalAmount:       o.TotalAmount.String(),
		Status:            o.Status,
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     o.PaymentStatus,
		TrackingNumber:    o.TrackingNumber,
		EstimatedDelivery: o.EstimatedDelivery,
		CancelReason:      o.CancelReason,
		RefundAmount:      decimalString(o.RefundAmount),
		RefundMethod:      o.RefundMethod,
		RefundedAt:        o.RefundedAt,
		PendingReturnID:   o.PendingReturnID,
		Items:             make([]itemRecord, 0, len(o.Items)),
		History:           make([]historyRecord, 0, len(o.History)),
	}
	for _, it := range o.Items {
		rec.Items = append(rec.Items, itemRecord{
			ItemID:      it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.String(),
			Discount:    it.Discount.String(),
		})
	}
	for _, h := range o.History {
		rec.History = append(rec.History, toHistoryRecord(h))
	}
	return rec
}

func toHistoryRecord(h HistoryEntry) historyRecord {
	return historyRecord{Status: h.Status, ChangedAt: h.ChangedAt.UTC(), ChangedBy: h.ChangedBy, Note: h.Note}
}

func (rec orderRecord) toOrder() (Order, error) {
	createdAt, err := time.Parse(createdAtLayout, rec.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("parse created_at: %w", err)
	}
	total, err := decimal.NewFromString(rec.TotalAmount)
	if err != nil {
		return Order{}, fmt.Errorf("parse total_amount: %w", err)
	}
	refund, err := parseDecimalPtr(rec.RefundAmount)
	if err != nil {
		return Order{}, fmt.Errorf("parse refund_amount: %w", err)
	}

	o := Order{
		ID:                rec.OrderID,
		UserID:            rec.UserID,
		CreatedAt:         createdAt,
		UpdatedAt:         rec.UpdatedAt,
		TotalAmount:       total,
		Status:            rec.Status,
		ShippingAddress:   rec.ShippingAddress,
		BillingAddress:    rec.BillingAddress,
		PaymentMethod:     rec.PaymentMethod,
		PaymentStatus:     rec.PaymentStatus,
		TrackingNumber:    rec.TrackingNumber,
		EstimatedDelivery: rec.EstimatedDelivery,
		CancelReason:      rec.CancelReason,
		RefundAmount:      refund,
		RefundMethod:      rec.RefundMethod,
		RefundedAt:        rec.RefundedAt,
		PendingReturnID:   rec.PendingReturnID,
		Items:             make([]OrderItem, 0, len(rec.Items)),
		History:           make([]HistoryEntry, 0, len(rec.History)),
	}
	for _, it := range rec.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return Order{}, fmt.Errorf("parse unit_price of %s: %w", it.ItemID, err)
		}
		discount := decimal.Zero
		if it.Discount != "" {
			if discount, err = decimal.NewFromString(it.Discount); err != nil {
				return Order{}, fmt.Errorf("parse discount of %s: %w", it.ItemID, err)
			}
		}
		o.Items = append(o.Items, OrderItem{
			ID:          it.ItemID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   price,
			Discount:    discount,
		})
	}
	for _, h := range rec.History {
		o.History = append(o.History, HistoryEntry{Status: h.Status, ChangedAt: h.ChangedAt, ChangedBy: h.ChangedBy, Note: h.Note})
	}
	return o, nil
}

func toReturnRecord(r ReturnRequest) returnRecord {
	return returnRecord{
		ReturnID:      r.ID,
		OrderID:       r.OrderID,
		UserID:        r.UserID,
		RequestDate:   r.RequestDate.UTC(),
		Reason:        r.Reason,
		Status:        r.Status,
		Resolution:    r.Resolution,
		RefundAmount:  decimalString(r.RefundAmount),
		RefundMethod:  r.RefundMethod,
		ProcessedDate: r.ProcessedDate,
		ProcessedBy:   r.ProcessedBy,
	}
}

func (rec returnRecord) toReturn() (ReturnRequest, error) {
	refund, err := parseDecimalPtr(rec.RefundAmount)
	if err != nil {
		return ReturnRequest{}, fmt.Errorf("parse refund_amount: %w", err)
	}
	return ReturnRequest{
		ID:            rec.ReturnID,
		OrderID:       rec.OrderID,
		UserID:        rec.UserID,
		RequestDate:   rec.RequestDate,
		Reason:        rec.Reason,
		Status:        rec.Status,
		Resolution:    rec.Resolution,
		RefundAmount:  refund,
		RefundMethod:  rec.RefundMethod,
		ProcessedDate: rec.ProcessedDate,
		ProcessedBy:   rec.ProcessedBy,
	}, nil
}

func (s *DynamoStore) CreateOrder(ctx context.Context, order Order) error {
	item, err := attributevalue.MarshalMap(toOrderRecord(order))
	if err != nil {
		return persistenceErr("create order", fmt.Errorf("marshal order: %w", err))
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tables.Orders,
		Item:                item,
		ConditionExpression: sdkaws.String("attribute_not_exists(order_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return persistenceErr("create order", fmt.Errorf("order %s already exists", order.ID))
		}
		return persistenceErr("create order", dynamoErr(err))
	}
	return nil
}

func (s *DynamoStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tables.Orders,
		Key:            orderKey(orderID),
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return Order{}, persistenceErr("get order", dynamoErr(err))
	}
	if len(out.Item) == 0 {
		return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return decodeOrder(out.Item)
}

func (s *DynamoStore) ListOrders(ctx context.Context, filter ListFilter) ([]Order, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tables.Orders,
		IndexName:              &s.tables.UserIndex,
		KeyConditionExpression: sdkaws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: filter.UserID},
		},
		ScanIndexForward: sdkaws.Bool(false),
	}
	if filter.Status != nil {
		input.FilterExpression = sdkaws.String("#s = :status")
		input.ExpressionAttributeNames = map[string]string{"#s": "status"}
		input.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: string(*filter.Status)}
	}

	out := []Order{}
	pages := dyn.NewQueryPaginator(s.client, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, persistenceErr("list orders", dynamoErr(err))
		}
		for _, item := range page.Items {
			o, err := decodeOrder(item)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ApplyStatusChange is a compare-and-swap on status: the write is conditioned
// on the stored status still being change.From.
func (s *DynamoStore) ApplyStatusChange(ctx context.Context, change StatusChange) (Order, error) {
	upd := newUpdate()
	if err := upd.statusChange(change); err != nil {
		return Order{}, persistenceErr("apply status change", err)
	}
	upd.values[":from"] = &types.AttributeValueMemberS{Value: string(change.From)}

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                           &s.tables.Orders,
		Key:                                 orderKey(change.OrderID),
		UpdateExpression:                    upd.expression(),
		ConditionExpression:                 sdkaws.String("attribute_exists(order_id) AND #s = :from"),
		ExpressionAttributeNames:            upd.names,
		ExpressionAttributeValues:           upd.values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, change.OrderID)
			}
			return Order{}, ErrConflict
		}
		return Order{}, persistenceErr("apply status change", dynamoErr(err))
	}
	return decodeOrder(out.Attributes)
}

func (s *DynamoStore) UpdateFulfillment(ctx context.Context, update FulfillmentUpdate) (Order, error) {
	upd := newUpdate()
	if err := upd.set("updated_at", ":at", update.At.UTC()); err != nil {
		return Order{}, persistenceErr("update fulfillment", err)
	}
	if update.TrackingNumber != nil {
		_ = upd.set("tracking_number", ":tn", *update.TrackingNumber)
	}
	if update.EstimatedDelivery != nil {
		if err := upd.set("estimated_delivery", ":eta", update.EstimatedDelivery.UTC()); err != nil {
			return Order{}, persistenceErr("update fulfillment", err)
		}
	}

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tables.Orders,
		Key:                       orderKey(update.OrderID),
		UpdateExpression:          upd.expression(),
		ConditionExpression:       sdkaws.String("attribute_exists(order_id)"),
		ExpressionAttributeNames:  upd.namesOrNil(),
		ExpressionAttributeValues: upd.values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, update.OrderID)
		}
		return Order{}, persistenceErr("update fulfillment", dynamoErr(err))
	}
	return decodeOrder(out.Attributes)
}

// CreateReturn writes the return and claims the order's pending-return slot
// in one transaction.
func (s *DynamoStore) CreateReturn(ctx context.Context, ret ReturnRequest) error {
	item, err := attributevalue.MarshalMap(toReturnRecord(ret))
	if err != nil {
		return persistenceErr("create return", fmt.Errorf("marshal return: %w", err))
	}
	at, err := attributevalue.Marshal(ret.RequestDate.UTC())
	if err != nil {
		return persistenceErr("create return", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &s.tables.Returns,
					Item:                item,
					ConditionExpression: sdkaws.String("attribute_not_exists(return_id)"),
				},
			},
			{
				Update: &types.Update{
					TableName:                &s.tables.Orders,
					Key:                      orderKey(ret.OrderID),
					UpdateExpression:         sdkaws.String("SET pending_return_id = :rid, updated_at = :at"),
					ConditionExpression:      sdkaws.String("#s = :delivered AND attribute_not_exists(pending_return_id)"),
					ExpressionAttributeNames: map[string]string{"#s": "status"},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":rid":       &types.AttributeValueMemberS{Value: ret.ID},
						":at":        at,
						":delivered": &types.AttributeValueMemberS{Value: string(StatusDelivered)},
					},
				},
			},
		},
	})
	if err == nil {
		return nil
	}
	if !isTransactionCanceled(err) {
		return persistenceErr("create return", dynamoErr(err))
	}

	order, getErr := s.GetOrder(ctx, ret.OrderID)
	switch {
	case getErr != nil:
		return getErr
	case order.PendingReturnID != "":
		return ErrDuplicateReturnRequest
	case order.Status != StatusDelivered:
		return ErrConflict
	default:
		return persistenceErr("create return", dynamoErr(err))
	}
}

func (s *DynamoStore) GetReturn(ctx context.Context, returnID string) (ReturnRequest, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tables.Returns,
		Key:            returnKey(returnID),
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return ReturnRequest{}, persistenceErr("get return", dynamoErr(err))
	}
	if len(out.Item) == 0 {
		return ReturnRequest{}, fmt.Errorf("%w: return %s", ErrNotFound, returnID)
	}
	var rec returnRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return ReturnRequest{}, persistenceErr("get return", fmt.Errorf("unmarshal return: %w", err))
	}
	ret, err := rec.toReturn()
	if err != nil {
		return ReturnRequest{}, persistenceErr("get return", err)
	}
	return ret, nil
}

// ResolveReturn closes the return, releases the order's pending-return slot
// and optionally moves the order, all in one transaction.
func (s *DynamoStore) ResolveReturn(ctx context.Context, res ReturnResolution) (ReturnRequest, error) {
	retUpd := newUpdate()
	retUpd.names["#s"] = "status"
	retUpd.values[":pending"] = &types.AttributeValueMemberS{Value: string(ReturnPending)}
	_ = retUpd.set("#s", ":status", string(res.Status))
	_ = retUpd.set("resolution", ":res", res.Resolution)
	_ = retUpd.set("processed_by", ":pb", res.ProcessedBy)
	if err := retUpd.set("processed_date", ":pd", res.ProcessedDate.UTC()); err != nil {
		return ReturnRequest{}, persistenceErr("resolve return", err)
	}
	if res.RefundAmount != nil {
		_ = retUpd.set("refund_amount", ":ra", res.RefundAmount.String())
	}
	if res.RefundMethod != nil {
		_ = retUpd.set("refund_method", ":rm", *res.RefundMethod)
	}

	orderUpd := newUpdate()
	orderUpd.remove("pending_return_id")
	orderUpd.values[":rid"] = &types.AttributeValueMemberS{Value: res.ReturnID}
	orderCond := "pending_return_id = :rid"
	if res.OrderChange != nil {
		if err := orderUpd.statusChange(*res.OrderChange); err != nil {
			return ReturnRequest{}, persistenceErr("resolve return", err)
		}
		orderUpd.values[":from"] = &types.AttributeValueMemberS{Value: string(res.OrderChange.From)}
		orderCond += " AND #s = :from"
	} else if err := orderUpd.set("updated_at", ":at", res.ProcessedDate.UTC()); err != nil {
		return ReturnRequest{}, persistenceErr("resolve return", err)
	}

	_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:                 &s.tables.Returns,
					Key:                       returnKey(res.ReturnID),
					UpdateExpression:          retUpd.expression(),
					ConditionExpression:       sdkaws.String("#s = :pending"),
					ExpressionAttributeNames:  retUpd.names,
					ExpressionAttributeValues: retUpd.values,
				},
			},
			{
				Update: &types.Update{
					TableName:                 &s.tables.Orders,
					Key:                       orderKey(res.OrderID),
					UpdateExpression:          orderUpd.expression(),
					ConditionExpression:       &orderCond,
					ExpressionAttributeNames:  orderUpd.namesOrNil(),
					ExpressionAttributeValues: orderUpd.values,
				},
			},
		},
	})
	if err != nil {
		if !isTransactionCanceled(err) {
			return ReturnRequest{}, persistenceErr("resolve return", dynamoErr(err))
		}
		current, getErr := s.GetReturn(ctx, res.ReturnID)
		switch {
		case getErr != nil:
			return ReturnRequest{}, getErr
		case current.Status != ReturnPending:
			return ReturnRequest{}, ErrInvalidReturnState
		default:
			return ReturnRequest{}, ErrConflict
		}
	}
	return s.GetReturn(ctx, res.ReturnID)
}

// updateBuilder accumulates SET and REMOVE clauses for one UpdateItem call.
type updateBuilder struct {
	sets    []string
	removes []string
	names   map[string]string
	values  map[string]types.AttributeValue
}

func newUpdate() *updateBuilder {
	return &updateBuilder{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
	}
}

func (u *updateBuilder) set(path, placeholder string, v any) error {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	u.sets = append(u.sets, path+" = "+placeholder)
	u.values[placeholder] = av
	return nil
}

func (u *updateBuilder) remove(path string) {
	u.removes = append(u.removes, path)
}

// statusChange adds the clauses that apply change to an order item.
func (u *updateBuilder) statusChange(change StatusChange) error {
	u.names["#s"] = "status"
	if err := u.set("#s", ":to", string(change.To)); err != nil {
		return err
	}
	if err := u.set("updated_at", ":at", change.At.UTC()); err != nil {
		return err
	}

	entry, err := attributevalue.Marshal([]historyRecord{toHistoryRecord(change.Entry)})
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	u.sets = append(u.sets, "history = list_append(if_not_exists(history, :empty), :entry)")
	u.values[":entry"] = entry
	u.values[":empty"] = &types.AttributeValueMemberL{Value: []types.AttributeValue{}}

	if change.TrackingNumber != nil {
		_ = u.set("tracking_number", ":tn", *change.TrackingNumber)
	}
	if change.EstimatedDelivery != nil {
		if err := u.set("estimated_delivery", ":eta", change.EstimatedDelivery.UTC()); err != nil {
			return err
		}
	}
	if change.CancelReason != nil {
		_ = u.set("cancel_reason", ":cr", *change.CancelReason)
	}
	if change.RefundAmount != nil {
		_ = u.set("refund_amount", ":ra", change.RefundAmount.String())
		u.sets = append(u.sets, "refunded_at = :at")
	}
	if change.RefundMethod != nil {
		_ = u.set("refund_method", ":rm", *change.RefundMethod)
	}
	return nil
}

func (u *updateBuilder) expression() *string {
	var parts []string
	if len(u.sets) > 0 {
		parts = append(parts, "SET "+strings.Join(u.sets, ", "))
	}
	if len(u.removes) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(u.removes, ", "))
	}
	return sdkaws.String(strings.Join(parts, " "))
}

func (u *updateBuilder) namesOrNil() map[string]string {
	if len(u.names) == 0 {
		return nil
	}
	return u.names
}

func decodeOrder(item map[string]types.AttributeValue) (Order, error) {
	var rec orderRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return Order{}, persistenceErr("decode order", fmt.Errorf("unmarshal order: %w", err))
	}
	o, err := rec.toOrder()
	if err != nil {
		return Order{}, persistenceErr("decode order", err)
	}
	return o, nil
}

func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"order_id": &types.AttributeValueMemberS{Value: id}}
}

func returnKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"return_id": &types.AttributeValueMemberS{Value: id}}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func isTransactionCanceled(err error) bool {
	var tce *types.TransactionCanceledException
	return errors.As(err, &tce)
}

// dynamoErr annotates err with the service error code when there is one.
func dynamoErr(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("dynamodb %s: %w", apiErr.ErrorCode(), err)
	}
	return err
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
