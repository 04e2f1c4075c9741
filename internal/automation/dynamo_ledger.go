package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the ledger uses.
type DynamoAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// dynamoKey addresses one delivery: PK = DELIVERY#<event id>,
// SK = TARGET#<webhook>.
type dynamoKey struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

type dynamoDelivery struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	EventType string `dynamodbav:"EventType"`
	Status    string `dynamodbav:"Status"`
	Attempts  int    `dynamodbav:"Attempts"`
	LastError string `dynamodbav:"LastError"`
	UpdatedAt int64  `dynamodbav:"UpdatedAt"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// DynamoLedger keeps deliveries in a single DynamoDB table using
// conditional updates, for deployments without PostgreSQL access from the
// worker.
type DynamoLedger struct {
	client    DynamoAPI
	table     string
	lease     time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewDynamoLedger builds a ledger on table. Rows expire through the
// table's TTL attribute after retention.
func NewDynamoLedger(client DynamoAPI, table string, lease, retention time.Duration) *DynamoLedger {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &DynamoLedger{client: client, table: table, lease: lease, retention: retention, now: time.Now}
}

func (l *DynamoLedger) key(eventID, target string) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(dynamoKey{PK: "DELIVERY#" + eventID, SK: "TARGET#" + target})
}

func (l *DynamoLedger) Claim(ctx context.Context, eventID, target, eventType string) (bool, error) {
	key, err := l.key(eventID, target)
	if err != nil {
		return false, fmt.Errorf("marshal delivery key: %w", err)
	}
	now := l.now().UTC()
	values, err := attributevalue.MarshalMap(map[string]interface{}{
		":pending": StatusPending,
		":failed":  StatusFailed,
		":type":    eventType,
		":now":     now.Unix(),
		":stale":   now.Add(-l.lease).Unix(),
		":ttl":     now.Add(l.retention).Unix(),
		":one":     1,
	})
	if err != nil {
		return false, fmt.Errorf("marshal claim values: %w", err)
	}
	_, err = l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(l.table),
		Key:              key,
		UpdateExpression: aws.String("SET #s = :pending, EventType = :type, UpdatedAt = :now, #ttl = :ttl ADD Attempts :one"),
		ConditionExpression: aws.String(
			"attribute_not_exists(PK) OR #s = :failed OR (#s = :pending AND UpdatedAt < :stale)"),
		ExpressionAttributeNames:  map[string]string{"#s": "Status", "#ttl": "TTL"},
		ExpressionAttributeValues: values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim delivery %s/%s: %w", eventID, target, err)
	}
	return true, nil
}

func (l *DynamoLedger) MarkDelivered(ctx context.Context, eventID, target string) error {
	return l.set(ctx, eventID, target, StatusDelivered, "")
}

func (l *DynamoLedger) MarkFailed(ctx context.Context, eventID, target, reason string) error {
	return l.set(ctx, eventID, target, StatusFailed, reason)
}

func (l *DynamoLedger) set(ctx context.Context, eventID, target, status, reason string) error {
	key, err := l.key(eventID, target)
	if err != nil {
		return fmt.Errorf("marshal delivery key: %w", err)
	}
	values, err := attributevalue.MarshalMap(map[string]interface{}{
		":status": status,
		":reason": reason,
		":now":    l.now().UTC().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal delivery values: %w", err)
	}
	_, err = l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(l.table),
		Key:                       key,
		UpdateExpression:          aws.String("SET #s = :status, LastError = :reason, UpdatedAt = :now"),
		ExpressionAttributeNames:  map[string]string{"#s": "Status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("mark delivery %s/%s %s: %w", eventID, target, status, err)
	}
	return nil
}

// Get loads one delivery; (nil, nil) when absent.
func (l *DynamoLedger) Get(ctx context.Context, eventID, target string) (*Delivery, error) {
	key, err := l.key(eventID, target)
	if err != nil {
		return nil, fmt.Errorf("marshal delivery key: %w", err)
	}
	out, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String(l.table), Key: key})
	if err != nil {
		return nil, fmt.Errorf("get delivery %s/%s: %w", eventID, target, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var row dynamoDelivery
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, fmt.Errorf("decode delivery: %w", err)
	}
	return &Delivery{
		EventID:   eventID,
		Target:    target,
		EventType: row.EventType,
		Status:    row.Status,
		Attempts:  row.Attempts,
		LastError: row.LastError,
		UpdatedAt: time.Unix(row.UpdatedAt, 0).UTC(),
	}, nil
}
