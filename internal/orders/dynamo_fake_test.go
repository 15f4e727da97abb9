package orders

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory DynamoDB that understands the subset of
// condition and update expressions DynamoStore issues.
type fakeDynamo struct {
	mu     sync.Mutex
	keys   map[string]string // table -> partition key attribute
	tables map[string]map[string]map[string]types.AttributeValue
	// fail injects an error for the named operation.
	fail map[string]error
}

func newFakeDynamo(keys map[string]string) *fakeDynamo {
	f := &fakeDynamo{
		keys:   keys,
		tables: map[string]map[string]map[string]types.AttributeValue{},
		fail:   map[string]error{},
	}
	for tbl := range keys {
		f.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
	return f
}

func (f *fakeDynamo) keyOf(table string, item map[string]types.AttributeValue) (string, error) {
	attr, ok := f.keys[table]
	if !ok {
		return "", fmt.Errorf("unknown table %s", table)
	}
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("missing key %s", attr)
	}
	return v.Value, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dyn.PutItemInput, _ ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["PutItem"]; err != nil {
		return nil, err
	}
	pk, err := f.keyOf(*in.TableName, in.Item)
	if err != nil {
		return nil, err
	}
	current := f.tables[*in.TableName][pk]
	if !evalCondition(in.ConditionExpression, current, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.tables[*in.TableName][pk] = copyItem(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dyn.GetItemInput, _ ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["GetItem"]; err != nil {
		return nil, err
	}
	pk, err := f.keyOf(*in.TableName, in.Key)
	if err != nil {
		return nil, err
	}
	item, ok := f.tables[*in.TableName][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dyn.UpdateItemInput, _ ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["UpdateItem"]; err != nil {
		return nil, err
	}
	pk, err := f.keyOf(*in.TableName, in.Key)
	if err != nil {
		return nil, err
	}
	current := f.tables[*in.TableName][pk]
	if !evalCondition(in.ConditionExpression, current, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		ccf := &types.ConditionalCheckFailedException{}
		if in.ReturnValuesOnConditionCheckFailure == types.ReturnValuesOnConditionCheckFailureAllOld && current != nil {
			ccf.Item = copyItem(current)
		}
		return nil, ccf
	}
	next, err := applyUpdate(*in.UpdateExpression, current, in.Key, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	f.tables[*in.TableName][pk] = next
	return &dyn.UpdateItemOutput{Attributes: copyItem(next)}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dyn.QueryInput, _ ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["Query"]; err != nil {
		return nil, err
	}
	out := &dyn.QueryOutput{}
	for _, item := range f.tables[*in.TableName] {
		if !evalCondition(in.KeyConditionExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			continue
		}
		if !evalCondition(in.FilterExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			continue
		}
		out.Items = append(out.Items, copyItem(item))
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dyn.TransactWriteItemsInput, _ ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["TransactWriteItems"]; err != nil {
		return nil, err
	}

	type write struct {
		table, pk string
		item      map[string]types.AttributeValue
	}
	var writes []write
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	canceled := false

	for i, ti := range in.TransactItems {
		code := "None"
		switch {
		case ti.Put != nil:
			pk, err := f.keyOf(*ti.Put.TableName, ti.Put.Item)
			if err != nil {
				return nil, err
			}
			current := f.tables[*ti.Put.TableName][pk]
			if evalCondition(ti.Put.ConditionExpression, current, ti.Put.ExpressionAttributeNames, ti.Put.ExpressionAttributeValues) {
				writes = append(writes, write{*ti.Put.TableName, pk, copyItem(ti.Put.Item)})
			} else {
				code, canceled = "ConditionalCheckFailed", true
			}
		case ti.Update != nil:
			pk, err := f.keyOf(*ti.Update.TableName, ti.Update.Key)
			if err != nil {
				return nil, err
			}
			current := f.tables[*ti.Update.TableName][pk]
			if evalCondition(ti.Update.ConditionExpression, current, ti.Update.ExpressionAttributeNames, ti.Update.ExpressionAttributeValues) {
				next, err := applyUpdate(*ti.Update.UpdateExpression, current, ti.Update.Key, ti.Update.ExpressionAttributeNames, ti.Update.ExpressionAttributeValues)
				if err != nil {
					return nil, err
				}
				writes = append(writes, write{*ti.Update.TableName, pk, next})
			} else {
				code, canceled = "ConditionalCheckFailed", true
			}
		default:
			return nil, errors.New("unsupported transact item")
		}
		reasons[i] = types.CancellationReason{Code: &code}
	}

	if canceled {
		msg := "Transaction cancelled"
		return nil, &types.TransactionCanceledException{Message: &msg, CancellationReasons: reasons}
	}
	for _, w := range writes {
		f.tables[w.table][w.pk] = w.item
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func evalCondition(expr *string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	if expr == nil || *expr == "" {
		return true
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_exists("):
			path := resolveName(innerArgs(clause)[0], names)
			if _, ok := item[path]; !ok {
				return false
			}
		case strings.HasPrefix(clause, "attribute_not_exists("):
			path := resolveName(innerArgs(clause)[0], names)
			if _, ok := item[path]; ok {
				return false
			}
		default:
			lhs, rhs, ok := strings.Cut(clause, " = ")
			if !ok {
				panic("unsupported condition: " + clause)
			}
			got, exists := item[resolveName(strings.TrimSpace(lhs), names)]
			if !exists || !reflect.DeepEqual(got, values[strings.TrimSpace(rhs)]) {
				return false
			}
		}
	}
	return true
}

func applyUpdate(expr string, current, key map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	next := copyItem(current)
	if next == nil {
		next = copyItem(key)
	}

	setPart, removePart := expr, ""
	if i := strings.Index(expr, "REMOVE "); i >= 0 {
		setPart, removePart = expr[:i], expr[i+len("REMOVE "):]
	}
	setPart = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(setPart), "SET "))

	if setPart != "" {
		for _, assignment := range splitTopLevel(setPart) {
			lhs, rhs, ok := strings.Cut(assignment, " = ")
			if !ok {
				return nil, fmt.Errorf("unsupported assignment %q", assignment)
			}
			v, err := evalOperand(strings.TrimSpace(rhs), current, names, values)
			if err != nil {
				return nil, err
			}
			next[resolveName(strings.TrimSpace(lhs), names)] = v
		}
	}
	if removePart != "" {
		for _, path := range splitTopLevel(removePart) {
			delete(next, resolveName(path, names))
		}
	}
	return next, nil
}

func evalOperand(op string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	switch {
	case strings.HasPrefix(op, ":"):
		v, ok := values[op]
		if !ok {
			return nil, fmt.Errorf("missing value %s", op)
		}
		return v, nil
	case strings.HasPrefix(op, "if_not_exists("):
		args := innerArgs(op)
		if v, ok := item[resolveName(args[0], names)]; ok {
			return v, nil
		}
		return evalOperand(args[1], item, names, values)
	case strings.HasPrefix(op, "list_append("):
		args := innerArgs(op)
		var out []types.AttributeValue
		for _, arg := range args {
			v, err := evalOperand(arg, item, names, values)
			if err != nil {
				return nil, err
			}
			l, ok := v.(*types.AttributeValueMemberL)
			if !ok {
				return nil, fmt.Errorf("list_append operand %s is not a list", arg)
			}
			out = append(out, l.Value...)
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	default:
		v, ok := item[resolveName(op, names)]
		if !ok {
			return nil, fmt.Errorf("missing attribute %s", op)
		}
		return v, nil
	}
}

// innerArgs returns the top-level arguments of a call like fn(a, b(c, d)).
func innerArgs(call string) []string {
	open := strings.Index(call, "(")
	return splitTopLevel(call[open+1 : len(call)-1])
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		return names[token]
	}
	return token
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
