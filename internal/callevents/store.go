package callevents

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/leadbridge-au/leadbridge/internal/leads"
	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

// lookbackDays bounds the backward partition probe for callbacks that carry
// only a call id. Calls are assumed resolved within a week of creation;
// older updates are dropped.
const lookbackDays = 7

// ErrCallEventNotFound indicates no record matched within the lookback window.
var ErrCallEventNotFound = errors.New("callevents: call event not found")

// Store is the persistence contract for call attempts.
type Store interface {
	Save(ctx context.Context, event *CallEvent) error
	Get(ctx context.Context, callID string, createdDate time.Time) (*CallEvent, error)
	UpdateStatus(ctx context.Context, callID string, status Status) error
	UpdateDuration(ctx context.Context, callID string, durationSeconds int, status Status) error
}

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore persists call events to DynamoDB, keyed by (date, callId).
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
	now       func() time.Time
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("callevents: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("callevents: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

// Save upserts a call event record.
func (s *DynamoStore) Save(ctx context.Context, event *CallEvent) error {
	if event == nil {
		return errors.New("callevents: event cannot be nil")
	}
	if event.CallID == "" {
		return errors.New("callevents: callID required")
	}
	if event.Date == "" {
		event.Date = event.CreatedAt.UTC().Format(leads.DateLayout)
	}

	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("callevents: failed to marshal event: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("callevents: failed to persist event %s: %w", event.CallID, err)
	}
	s.logger.Info("call event saved", "call_id", event.CallID, "status", event.Status)
	return nil
}

// Get fetches a call event by id and the date it was created.
func (s *DynamoStore) Get(ctx context.Context, callID string, createdDate time.Time) (*CallEvent, error) {
	if callID == "" {
		return nil, errors.New("callevents: callID required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       eventKey(callID, createdDate),
	})
	if err != nil {
		return nil, fmt.Errorf("callevents: failed to fetch event %s: %w", callID, err)
	}
	if out.Item == nil {
		return nil, ErrCallEventNotFound
	}

	var event CallEvent
	if err := attributevalue.UnmarshalMap(out.Item, &event); err != nil {
		return nil, fmt.Errorf("callevents: failed to decode event %s: %w", callID, err)
	}
	return &event, nil
}

// UpdateStatus applies a provider status callback. Callbacks carry only the
// call id, so the record is located by probing recent daily partitions
// backward from today. Last write wins; no status ordering is enforced.
func (s *DynamoStore) UpdateStatus(ctx context.Context, callID string, status Status) error {
	expression := "SET #status = :status"
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(status)},
	}
	if status == StatusCompleted {
		expression += ", completedAt = if_not_exists(completedAt, :completedAt)"
		values[":completedAt"] = timestampValue(s.now())
	}
	return s.updateRecent(ctx, callID, expression, values)
}

// UpdateDuration applies a provider duration callback alongside a final status.
func (s *DynamoStore) UpdateDuration(ctx context.Context, callID string, durationSeconds int, status Status) error {
	expression := "SET durationSeconds = :duration, #status = :status"
	values := map[string]types.AttributeValue{
		":duration": &types.AttributeValueMemberN{Value: strconv.Itoa(durationSeconds)},
		":status":   &types.AttributeValueMemberS{Value: string(status)},
	}
	if status == StatusCompleted {
		expression += ", completedAt = if_not_exists(completedAt, :completedAt)"
		values[":completedAt"] = timestampValue(s.now())
	}
	return s.updateRecent(ctx, callID, expression, values)
}

// updateRecent probes today backward through the lookback window, issuing a
// field-scoped conditional update against each candidate partition. The
// hangup fires status and duration callbacks near-simultaneously; writing
// only the callback's own fields keeps them from tearing each other.
func (s *DynamoStore) updateRecent(ctx context.Context, callID, expression string, values map[string]types.AttributeValue) error {
	if callID == "" {
		return errors.New("callevents: callID required")
	}
	for daysBack := 0; daysBack < lookbackDays; daysBack++ {
		date := s.now().UTC().AddDate(0, 0, -daysBack)
		_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.tableName),
			Key:                       eventKey(callID, date),
			UpdateExpression:          aws.String(expression),
			ExpressionAttributeNames:  map[string]string{"#status": "status"},
			ExpressionAttributeValues: values,
			ConditionExpression:       aws.String("attribute_exists(callId)"),
		})
		if err != nil {
			var condErr *types.ConditionalCheckFailedException
			if errors.As(err, &condErr) {
				continue
			}
			return fmt.Errorf("callevents: failed to update event %s: %w", callID, err)
		}
		s.logger.Info("call event updated", "call_id", callID)
		return nil
	}
	s.logger.Warn("call event not found in lookback window", "call_id", callID, "days", lookbackDays)
	return ErrCallEventNotFound
}

func timestampValue(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(time.RFC3339Nano)}
}

func eventKey(callID string, createdDate time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"date":   &types.AttributeValueMemberS{Value: createdDate.UTC().Format(leads.DateLayout)},
		"callId": &types.AttributeValueMemberS{Value: callID},
	}
}
