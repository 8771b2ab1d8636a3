package database

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

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrConditionFailed = errors.New("condition check failed")
)

const (
	batchGetSize   = 100
	batchWriteSize = 25
	maxBatchRetry  = 3
)

type Key = map[string]types.AttributeValue

func S(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}

func N(value int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", value)}
}

// StringKey builds a key from attribute/value pairs.
func StringKey(pairs ...string) Key {
	key := make(Key, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key[pairs[i]] = S(pairs[i+1])
	}
	return key
}

func wrapCondition(err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %v", ErrConditionFailed, err)
	}
	return err
}

func (c *DynamoDBClient) PutItem(ctx context.Context, tableName string, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put item %s: %w", tableName, err)
	}
	return nil
}

// PutItemIfAbsent writes item unless an item with the same partition key
// exists, in which case the error wraps ErrConditionFailed.
func (c *DynamoDBClient) PutItemIfAbsent(ctx context.Context, tableName string, item any, partitionKey string) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(tableName),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": partitionKey},
	})
	if err != nil {
		return fmt.Errorf("put item %s: %w", tableName, wrapCondition(err))
	}
	return nil
}

func (c *DynamoDBClient) GetItem(ctx context.Context, tableName string, key Key, out any) error {
	res, err := c.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("get item %s: %w", tableName, err)
	}
	if res.Item == nil {
		return fmt.Errorf("get item %s: %w", tableName, ErrItemNotFound)
	}

	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

type Update struct {
	Table      string
	Key        Key
	Expression string
	// Condition is optional; a failed condition wraps ErrConditionFailed.
	Condition string
	Values    map[string]types.AttributeValue
	Names     map[string]string
}

// UpdateItem applies u and decodes the updated item into out when out is
// not nil.
func (c *DynamoDBClient) UpdateItem(ctx context.Context, u Update, out any) error {
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(u.Table),
		Key:                       u.Key,
		UpdateExpression:          aws.String(u.Expression),
		ExpressionAttributeValues: u.Values,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if u.Condition != "" {
		input.ConditionExpression = aws.String(u.Condition)
	}
	if len(u.Names) > 0 {
		input.ExpressionAttributeNames = u.Names
	}

	res, err := c.svc.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("update item %s: %w", u.Table, wrapCondition(err))
	}

	if out != nil {
		if err := attributevalue.UnmarshalMap(res.Attributes, out); err != nil {
			return fmt.Errorf("unmarshal updated item: %w", err)
		}
	}
	return nil
}

func (c *DynamoDBClient) DeleteItem(ctx context.Context, tableName string, key Key) error {
	_, err := c.svc.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("delete item %s: %w", tableName, err)
	}
	return nil
}

type Query struct {
	Table        string
	Index        string
	KeyCondition string
	Values       map[string]types.AttributeValue
	Names        map[string]string
	// Descending reads the sort key from high to low.
	Descending bool
}

// QueryAll runs q and follows LastEvaluatedKey until every page is read.
func (c *DynamoDBClient) QueryAll(ctx context.Context, q Query) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(q.Table),
			KeyConditionExpression:    aws.String(q.KeyCondition),
			ExpressionAttributeValues: q.Values,
			ScanIndexForward:          aws.Bool(!q.Descending),
		}
		if q.Index != "" {
			input.IndexName = aws.String(q.Index)
		}
		if len(q.Names) > 0 {
			input.ExpressionAttributeNames = q.Names
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		res, err := c.svc.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query %s[%s]: %w", q.Table, q.Index, err)
		}
		items = append(items, res.Items...)

		if len(res.LastEvaluatedKey) == 0 {
			return items, nil
		}
		lastEvaluatedKey = res.LastEvaluatedKey
	}
}

// BatchGetByKeys fetches the items whose single-attribute key keyField takes
// one of values. Missing items are skipped.
func (c *DynamoDBClient) BatchGetByKeys(ctx context.Context, tableName, keyField string, values []string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue

	for start := 0; start < len(values); start += batchGetSize {
		end := min(start+batchGetSize, len(values))

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, v := range values[start:end] {
			keys = append(keys, StringKey(keyField, v))
		}

		pending := map[string]types.KeysAndAttributes{tableName: {Keys: keys}}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == maxBatchRetry {
				return nil, fmt.Errorf("batch get %s: unprocessed keys after %d attempts", tableName, attempt)
			}
			if attempt > 0 {
				if err := sleepBackoff(ctx, attempt); err != nil {
					return nil, err
				}
			}

			res, err := c.svc.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, fmt.Errorf("batch get %s: %w", tableName, err)
			}
			items = append(items, res.Responses[tableName]...)
			pending = res.UnprocessedKeys
		}
	}

	return items, nil
}

// BatchDeleteItems deletes keys in chunks of 25, retrying unprocessed
// requests.
func (c *DynamoDBClient) BatchDeleteItems(ctx context.Context, tableName string, keys []Key) error {
	for start := 0; start < len(keys); start += batchWriteSize {
		end := min(start+batchWriteSize, len(keys))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}

		if err := c.batchWriteWithRetry(ctx, tableName, map[string][]types.WriteRequest{tableName: requests}); err != nil {
			return err
		}
	}
	return nil
}

func (c *DynamoDBClient) batchWriteWithRetry(ctx context.Context, tableName string, pending map[string][]types.WriteRequest) error {
	for attempt := 0; len(pending) > 0; attempt++ {
		if attempt == maxBatchRetry {
			return fmt.Errorf("batch write %s: %d requests unprocessed after %d attempts",
				tableName, len(pending[tableName]), attempt)
		}
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
		}

		res, err := c.svc.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("batch write %s (attempt %d): %w", tableName, attempt+1, err)
		}
		pending = res.UnprocessedItems
	}
	return nil
}

func sleepBackoff(ctx context.Context, attempt int) error {
	d := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
