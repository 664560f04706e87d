package orders

import (
	"context"
	"errors"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo stores items per table in a nested map: table -> pkValue -> item map.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
	// transactErr, when set, fails every TransactWriteItems call
	transactErr error
}

func reasons(codes ...string) []types.CancellationReason {
	out := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		code := c
		out[i] = types.CancellationReason{Code: &code}
	}
	return out
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func (m *mockDynamo) ensureTable(tbl string) map[string]map[string]types.AttributeValue {
	if _, ok := m.tables[tbl]; !ok {
		m.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[tbl]
}

// pkOf finds the primary key: order_id or idempotency_key
func pkOf(item map[string]types.AttributeValue) (string, string, error) {
	for _, name := range []string{"order_id", "idempotency_key"} {
		if v, ok := item[name].(*types.AttributeValueMemberS); ok {
			return name, v.Value, nil
		}
	}
	return "", "", errors.New("no primary key")
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, pk, err := pkOf(params.Item)
	if err != nil {
		return nil, err
	}
	m.ensureTable(*params.TableName)[pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	return &dyn.GetItemOutput{Item: m.ensureTable(*params.TableName)[pk]}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.ensureTable(*params.TableName)[pk]
	if !ok {
		return nil, errors.New("item not found")
	}
	for placeholder, attr := range map[string]string{
		":done": "status", ":failed": "status", ":rb": "response_body", ":n": "note", ":ua": "updated_at",
	} {
		if v, ok := params.ExpressionAttributeValues[placeholder]; ok {
			item[attr] = v
		}
	}
	return &dyn.UpdateItemOutput{}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	delete(m.ensureTable(*params.TableName), pk)
	return &dyn.DeleteItemOutput{}, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transactErr != nil {
		return nil, m.transactErr
	}
	// First pass: verify attribute_not_exists conditions
	codes := make([]string, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		codes[i] = "None"
		p := it.Put
		if p == nil || p.ConditionExpression == nil {
			continue
		}
		_, pk, err := pkOf(p.Item)
		if err != nil {
			return nil, err
		}
		if _, exists := m.ensureTable(*p.TableName)[pk]; exists {
			codes[i] = "ConditionalCheckFailed"
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons(codes...)}
	}
	// Second pass: apply all puts
	for _, it := range params.TransactItems {
		if p := it.Put; p != nil {
			_, pk, _ := pkOf(p.Item)
			m.ensureTable(*p.TableName)[pk] = p.Item
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

type publishedMessage struct {
	payload    interface{}
	attributes map[string]string
}

type mockPublisher struct {
	mu   sync.Mutex
	sent []publishedMessage
	err  error
}

func (p *mockPublisher) Publish(ctx context.Context, payload interface{}, attributes map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, publishedMessage{payload: payload, attributes: attributes})
	return nil
}

type mockCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *mockCounter) Count(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[name]++
	return nil
}
