package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

type mockDynamo struct {
	putInput     *dynamodb.PutItemInput
	putErr       error
	updateInputs []*dynamodb.UpdateItemInput
	updateErr    error
	getOutput    *dynamodb.GetItemOutput
	getErr       error
}

func (m *mockDynamo) PutItem(ctx context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = input
	return &dynamodb.PutItemOutput{}, m.putErr
}

func (m *mockDynamo) UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInputs = append(m.updateInputs, input)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, input *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getOutput == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return m.getOutput, nil
}

func TestDynamoStore_SaveDerivesDatePartition(t *testing.T) {
	mock := &mockDynamo{}
	store := NewDynamoStore(mock, "leads", logging.Default())

	received := time.Date(2026, 3, 14, 22, 5, 0, 0, time.UTC)
	lead := &Lead{
		LeadID:      "lead-1",
		TradiePhone: "+61400000001",
		ReceivedAt:  received,
		Status:      StatusReceived,
	}

	if err := store.Save(context.Background(), lead); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if mock.putInput == nil {
		t.Fatal("expected PutItem to be called")
	}

	var stored Lead
	if err := attributevalue.UnmarshalMap(mock.putInput.Item, &stored); err != nil {
		t.Fatalf("failed to unmarshal stored lead: %v", err)
	}
	if stored.Date != "2026-03-14" {
		t.Fatalf("expected date partition 2026-03-14, got %s", stored.Date)
	}
	if stored.Status != StatusReceived {
		t.Fatalf("expected Received status, got %s", stored.Status)
	}
}

func TestDynamoStore_SaveNilLead(t *testing.T) {
	store := NewDynamoStore(&mockDynamo{}, "leads", logging.Default())
	if err := store.Save(context.Background(), nil); err == nil {
		t.Fatal("expected error when lead is nil")
	}
}

func TestDynamoStore_GetMissReturnsNotFound(t *testing.T) {
	mock := &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: nil}}
	store := NewDynamoStore(mock, "leads", logging.Default())

	_, err := store.Get(context.Background(), "lead-1", time.Now())
	if !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestDynamoStore_GetUnmarshalsLead(t *testing.T) {
	item, err := attributevalue.MarshalMap(&Lead{
		Date:        "2026-03-14",
		LeadID:      "lead-1",
		TradiePhone: "+61400000001",
		Status:      StatusNotified,
		CallID:      "CA123",
	})
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	mock := &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: item}}
	store := NewDynamoStore(mock, "leads", logging.Default())

	lead, err := store.Get(context.Background(), "lead-1", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if lead.Status != StatusNotified || lead.CallID != "CA123" {
		t.Fatalf("unexpected lead: %+v", lead)
	}
}

func TestDynamoStore_UpdateStatusAttachesCallID(t *testing.T) {
	mock := &mockDynamo{}
	store := NewDynamoStore(mock, "leads", logging.Default())

	date := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if err := store.UpdateStatus(context.Background(), "lead-1", date, StatusNotified, "CA123"); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if len(mock.updateInputs) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(mock.updateInputs))
	}
	update := mock.updateInputs[0]

	if update.ExpressionAttributeNames["#status"] != "status" {
		t.Fatalf("expected #status alias, got %v", update.ExpressionAttributeNames)
	}
	status := update.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS).Value
	if status != string(StatusNotified) {
		t.Fatalf("expected Notified, got %s", status)
	}
	callID := update.ExpressionAttributeValues[":callId"].(*types.AttributeValueMemberS).Value
	if callID != "CA123" {
		t.Fatalf("expected CA123, got %s", callID)
	}

	key := update.Key["date"].(*types.AttributeValueMemberS).Value
	if key != "2026-03-14" {
		t.Fatalf("expected date key 2026-03-14, got %s", key)
	}
}

func TestDynamoStore_UpdateStatusOmitsCallIDWhenEmpty(t *testing.T) {
	mock := &mockDynamo{}
	store := NewDynamoStore(mock, "leads", logging.Default())

	if err := store.UpdateStatus(context.Background(), "lead-1", time.Now(), StatusSkippedDND, ""); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if _, ok := mock.updateInputs[0].ExpressionAttributeValues[":callId"]; ok {
		t.Fatal("expected no callId attribute for empty call id")
	}
}

func TestDynamoStore_UpdateStatusMissingLead(t *testing.T) {
	mock := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	store := NewDynamoStore(mock, "leads", logging.Default())

	err := store.UpdateStatus(context.Background(), "lead-1", time.Now(), StatusFailed, "")
	if !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}
