package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/fishly-storefront/internal/aws"
)

// sessionRecord is the shape persisted in the sessions table.
type sessionRecord struct {
	SessionKey string    `dynamodbav:"session_key"` // PK, browsing session id
	SubjectID  string    `dynamodbav:"subject_id"`
	Token      string    `dynamodbav:"token"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
	ExpiresAt  int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}

// DynamoStorage persists the credential of one browsing session in DynamoDB.
type DynamoStorage struct {
	client     aws.DynamoDBAPI
	tableName  string
	sessionKey string
	ttl        time.Duration
	nowFunc    func() time.Time
}

// NewDynamoStorage binds a storage to sessionKey in tableName. Records expire
// after ttl through the table's TTL attribute.
func NewDynamoStorage(client aws.DynamoDBAPI, tableName, sessionKey string, ttl time.Duration) *DynamoStorage {
	return &DynamoStorage{
		client:     client,
		tableName:  tableName,
		sessionKey: sessionKey,
		ttl:        ttl,
		nowFunc:    time.Now,
	}
}

func (s *DynamoStorage) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_key": &types.AttributeValueMemberS{Value: s.sessionKey},
	}
}

func (s *DynamoStorage) Load(ctx context.Context) (Credential, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.key(),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return Credential{}, fmt.Errorf("get session: %w", err)
	}
	if len(out.Item) == 0 {
		return Credential{}, nil
	}
	var rec sessionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Credential{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if rec.ExpiresAt > 0 && s.nowFunc().Unix() >= rec.ExpiresAt {
		// TTL deletion is lazy; an expired record counts as absent
		return Credential{}, nil
	}
	return Credential{SubjectID: rec.SubjectID, Token: rec.Token}, nil
}

func (s *DynamoStorage) Save(ctx context.Context, c Credential) error {
	now := s.nowFunc()
	rec := sessionRecord{
		SessionKey: s.sessionKey,
		SubjectID:  c.SubjectID,
		Token:      c.Token,
		UpdatedAt:  now,
	}
	if s.ttl > 0 {
		rec.ExpiresAt = now.Add(s.ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *DynamoStorage) Clear(ctx context.Context) error {
	if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       s.key(),
	}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ClearIf deletes the record only while it still holds c, so a late rejection
// of an older credential leaves a newer one in place.
func (s *DynamoStorage) ClearIf(ctx context.Context, c Credential) (bool, error) {
	cond := "subject_id = :subject_id AND #token = :token"
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:           &s.tableName,
		Key:                 s.key(),
		ConditionExpression: &cond,
		ExpressionAttributeNames: map[string]string{
			"#token": "token",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":subject_id": &types.AttributeValueMemberS{Value: c.SubjectID},
			":token":      &types.AttributeValueMemberS{Value: c.Token},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("conditional delete session: %w", err)
	}
	return true, nil
}

func awsBool(b bool) *bool { return &b }
