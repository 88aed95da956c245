package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/print-order-api/internal/domain"
)

// maxTransactItems is the DynamoDB limit on actions per TransactWriteItems call.
const maxTransactItems = 100

// RecordsAPI is the subset of the DynamoDB client used by RecordRepo.
type RecordsAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// recordItem is the table layout. expires_at holds unix seconds for the
// table's TTL; the millisecond fields carry the exact lifetime.
type recordItem struct {
	Key       string `dynamodbav:"record_key"`
	Payload   []byte `dynamodbav:"payload"`
	CreatedMs int64  `dynamodbav:"created_ms"`
	ExpiresMs int64  `dynamodbav:"expires_ms"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// RecordRepo stores expiring records, one table per record kind.
// PK: record_key
type RecordRepo struct {
	client    RecordsAPI
	tableName string
}

func NewRecordRepo(client RecordsAPI, tableName string) *RecordRepo {
	return &RecordRepo{client: client, tableName: tableName}
}

func (r *RecordRepo) Put(ctx context.Context, rec domain.ExpiringRecord) error {
	item, err := attributevalue.MarshalMap(recordItem{
		Key:       rec.Key,
		Payload:   rec.Payload,
		CreatedMs: rec.CreatedAt.UnixMilli(),
		ExpiresMs: rec.ExpiresAt.UnixMilli(),
		ExpiresAt: rec.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RecordRepo) Get(ctx context.Context, key string) (*domain.ExpiringRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("record_key", key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	return unmarshalRecord(out.Item)
}

func (r *RecordRepo) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("record_key", key),
	})
	return err
}

// Take deletes the item and returns what was there. DeleteItem is atomic per
// key, so of two concurrent callers only one gets the old attributes back.
func (r *RecordRepo) Take(ctx context.Context, key string) (*domain.ExpiringRecord, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          strKey("record_key", key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, err
	}
	if len(out.Attributes) == 0 {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	return unmarshalRecord(out.Attributes)
}

// DeleteExpired scans for expired keys and removes them in transactions of up
// to 100 conditional deletes each, so a chunk is removed entirely or not at all.
// When a chunk is cancelled because one of its records was rewritten meanwhile,
// the chunk is retried item by item and the rewritten records are kept.
func (r *RecordRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	nowMs := &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)}
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("expires_ms < :now"),
		ProjectionExpression:      aws.String("record_key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":now": nowMs},
	})

	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("scan expired records: %w", err)
		}
		for _, item := range page.Items {
			if v, ok := item["record_key"].(*types.AttributeValueMemberS); ok {
				keys = append(keys, v.Value)
			}
		}
	}

	deleted := 0
	for start := 0; start < len(keys); start += maxTransactItems {
		end := min(start+maxTransactItems, len(keys))
		n, err := r.deleteChunk(ctx, keys[start:end], nowMs)
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (r *RecordRepo) deleteChunk(ctx context.Context, keys []string, nowMs types.AttributeValue) (int, error) {
	items := make([]types.TransactWriteItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName:                 aws.String(r.tableName),
				Key:                       strKey("record_key", k),
				ConditionExpression:       aws.String("expires_ms < :now"),
				ExpressionAttributeValues: map[string]types.AttributeValue{":now": nowMs},
			},
		})
	}
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return len(keys), nil
	}
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return 0, fmt.Errorf("delete expired records: %w", err)
	}

	slog.Info("sweep transaction cancelled, deleting one by one", "table", r.tableName, "count", len(keys))
	deleted := 0
	for _, k := range keys {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                 aws.String(r.tableName),
			Key:                       strKey("record_key", k),
			ConditionExpression:       aws.String("expires_ms < :now"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":now": nowMs},
		})
		var ccf *types.ConditionalCheckFailedException
		switch {
		case err == nil:
			deleted++
		case errors.As(err, &ccf):
			// rewritten since the scan
		default:
			return deleted, fmt.Errorf("delete expired record: %w", err)
		}
	}
	return deleted, nil
}

func unmarshalRecord(item map[string]types.AttributeValue) (*domain.ExpiringRecord, error) {
	var ri recordItem
	if err := attributevalue.UnmarshalMap(item, &ri); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &domain.ExpiringRecord{
		Key:       ri.Key,
		Payload:   ri.Payload,
		CreatedAt: time.UnixMilli(ri.CreatedMs).UTC(),
		ExpiresAt: time.UnixMilli(ri.ExpiresMs).UTC(),
	}, nil
}
