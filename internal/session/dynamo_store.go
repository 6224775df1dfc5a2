package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/wolfman30/supportchat/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoRecord adds the table TTL attribute to a session item.
type dynamoRecord struct {
	Session
	ExpiresAt int64 `dynamodbav:"expiresAt"`
}

// DynamoStore persists sessions in a DynamoDB table keyed by sessionId.
// Expiry relies on the table TTL on expiresAt; reads also check it because
// DynamoDB deletes expired items lazily.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
	logger    *logging.Logger
}

var _ Store = (*DynamoStore)(nil)

func NewDynamoStore(client dynamoAPI, tableName string, ttl time.Duration, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("session: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("session: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{client: client, tableName: tableName, ttl: ttl, logger: logger}
}

func (s *DynamoStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("session: failed to fetch %s: %w", id, err)
	}
	if out.Item == nil {
		return New(id), nil
	}

	var rec dynamoRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("session: failed to decode %s: %w", id, err)
	}
	if rec.ExpiresAt > 0 && time.Now().Unix() > rec.ExpiresAt {
		s.logger.Debug("session: expired item still present", "session_id", id)
		return New(id), nil
	}
	sess := rec.Session
	return &sess, nil
}

func (s *DynamoStore) Exists(ctx context.Context, id string) (bool, error) {
	if validID(id) != nil {
		return false, nil
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.tableName),
		Key:                  s.key(id),
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("expiresAt"),
	})
	if err != nil {
		return false, fmt.Errorf("session: failed to check %s: %w", id, err)
	}
	if out.Item == nil {
		return false, nil
	}
	var rec struct {
		ExpiresAt int64 `dynamodbav:"expiresAt"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return false, fmt.Errorf("session: failed to decode %s: %w", id, err)
	}
	return rec.ExpiresAt == 0 || time.Now().Unix() <= rec.ExpiresAt, nil
}

func (s *DynamoStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if err := validID(sess.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	sess.UpdatedAt = now
	rec := dynamoRecord{Session: *sess}
	if s.ttl > 0 {
		rec.ExpiresAt = now.Add(s.ttl).Unix()
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("session: failed to marshal %s: %w", sess.ID, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("session: failed to persist %s: %w", sess.ID, err)
	}
	return nil
}

func (s *DynamoStore) Clear(ctx context.Context, id string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(id),
	}); err != nil {
		return fmt.Errorf("session: failed to clear %s: %w", id, err)
	}
	return nil
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"sessionId": &types.AttributeValueMemberS{Value: id},
	}
}
