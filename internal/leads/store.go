package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

// DateLayout is the partition-key format shared by both stores.
const DateLayout = "2006-01-02"

// Store is the persistence contract the dispatcher depends on.
type Store interface {
	Save(ctx context.Context, lead *Lead) error
	Get(ctx context.Context, leadID string, receivedDate time.Time) (*Lead, error)
	UpdateStatus(ctx context.Context, leadID string, receivedDate time.Time, status Status, callID string) error
}

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore persists leads to DynamoDB, keyed by (date, leadId).
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("leads: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("leads: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Save upserts a lead record. Records are append-only from the caller's
// perspective; repeated saves overwrite the same (date, leadId) row.
func (s *DynamoStore) Save(ctx context.Context, lead *Lead) error {
	if lead == nil {
		return errors.New("leads: lead cannot be nil")
	}
	if lead.Date == "" {
		lead.Date = lead.ReceivedAt.UTC().Format(DateLayout)
	}

	item, err := attributevalue.MarshalMap(lead)
	if err != nil {
		return fmt.Errorf("leads: failed to marshal lead: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("leads: failed to persist lead %s: %w", lead.LeadID, err)
	}
	s.logger.Info("lead saved", "lead_id", lead.LeadID, "status", lead.Status)
	return nil
}

// Get fetches a lead by id and the date it was received.
func (s *DynamoStore) Get(ctx context.Context, leadID string, receivedDate time.Time) (*Lead, error) {
	if leadID == "" {
		return nil, errors.New("leads: leadID required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       leadKey(leadID, receivedDate),
	})
	if err != nil {
		return nil, fmt.Errorf("leads: failed to fetch lead %s: %w", leadID, err)
	}
	if out.Item == nil {
		return nil, ErrLeadNotFound
	}

	var lead Lead
	if err := attributevalue.UnmarshalMap(out.Item, &lead); err != nil {
		return nil, fmt.Errorf("leads: failed to decode lead %s: %w", leadID, err)
	}
	return &lead, nil
}

// UpdateStatus transitions a lead's status, optionally attaching the call id.
func (s *DynamoStore) UpdateStatus(ctx context.Context, leadID string, receivedDate time.Time, status Status, callID string) error {
	if leadID == "" {
		return errors.New("leads: leadID required")
	}

	expression := "SET #status = :status"
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(status)},
	}
	names := map[string]string{
		"#status": "status",
	}
	if callID != "" {
		expression += ", callId = :callId"
		values[":callId"] = &types.AttributeValueMemberS{Value: callID}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       leadKey(leadID, receivedDate),
		UpdateExpression:          aws.String(expression),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(leadId)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrLeadNotFound
		}
		return fmt.Errorf("leads: failed to update lead %s: %w", leadID, err)
	}
	s.logger.Info("lead status updated", "lead_id", leadID, "status", status)
	return nil
}

func leadKey(leadID string, receivedDate time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"date":   &types.AttributeValueMemberS{Value: receivedDate.UTC().Format(DateLayout)},
		"leadId": &types.AttributeValueMemberS{Value: leadID},
	}
}
