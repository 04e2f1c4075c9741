package automation

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	updates []*dynamodb.UpdateItemInput
	err     error
	item    map[string]types.AttributeValue
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func TestDynamoLedger_Claim(t *testing.T) {
	fake := &fakeDynamo{}
	l := NewDynamoLedger(fake, "deliveries", time.Minute, 0)
	l.now = func() time.Time { return t0 }

	ok, err := l.Claim(context.Background(), "e1", "hook", "content.published")
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, fake.updates, 1)
	in := fake.updates[0]
	assert.Equal(t, "deliveries", aws.ToString(in.TableName))
	assert.Contains(t, aws.ToString(in.ConditionExpression), "attribute_not_exists(PK)")

	var key dynamoKey
	require.NoError(t, attributevalue.UnmarshalMap(in.Key, &key))
	assert.Equal(t, "DELIVERY#e1", key.PK)
	assert.Equal(t, "TARGET#hook", key.SK)

	var stale int64
	require.NoError(t, attributevalue.Unmarshal(in.ExpressionAttributeValues[":stale"], &stale))
	assert.Equal(t, t0.Add(-time.Minute).Unix(), stale)
}

func TestDynamoLedger_ConditionFailedMeansNotClaimed(t *testing.T) {
	fake := &fakeDynamo{err: &types.ConditionalCheckFailedException{Message: aws.String("held")}}
	l := NewDynamoLedger(fake, "deliveries", time.Minute, time.Hour)

	ok, err := l.Claim(context.Background(), "e1", "hook", "content.published")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDynamoLedger_MarkFailedAndGet(t *testing.T) {
	fake := &fakeDynamo{}
	l := NewDynamoLedger(fake, "deliveries", time.Minute, time.Hour)
	ctx := context.Background()

	require.NoError(t, l.MarkFailed(ctx, "e1", "hook", "boom"))
	require.Len(t, fake.updates, 1)
	var status string
	require.NoError(t, attributevalue.Unmarshal(fake.updates[0].ExpressionAttributeValues[":status"], &status))
	assert.Equal(t, StatusFailed, status)

	item, err := attributevalue.MarshalMap(dynamoDelivery{
		PK: "DELIVERY#e1", SK: "TARGET#hook", EventType: "content.published",
		Status: StatusFailed, Attempts: 2, LastError: "boom", UpdatedAt: t0.Unix(),
	})
	require.NoError(t, err)
	fake.item = item

	d, err := l.Get(ctx, "e1", "hook")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 2, d.Attempts)
	assert.Equal(t, "boom", d.LastError)
	assert.Equal(t, t0, d.UpdatedAt)

	fake.item = nil
	d, err = l.Get(ctx, "e1", "hook")
	require.NoError(t, err)
	assert.Nil(t, d)
}
