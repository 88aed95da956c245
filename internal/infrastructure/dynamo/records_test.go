package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/print-order-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordsAPI is an in-memory table keyed by record_key. It understands the
// one condition RecordRepo uses: expires_ms < :now.
type fakeRecordsAPI struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	// rewriteOnTransact refreshes this key right before a transaction runs,
	// simulating a concurrent writer.
	rewriteOnTransact string
	transactCalls     int
}

func newFakeRecordsAPI() *fakeRecordsAPI {
	return &fakeRecordsAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(key map[string]types.AttributeValue) string {
	return key["record_key"].(*types.AttributeValueMemberS).Value
}

func numOf(av types.AttributeValue) int64 {
	n, _ := strconv.ParseInt(av.(*types.AttributeValueMemberN).Value, 10, 64)
	return n
}

func expiredBefore(item map[string]types.AttributeValue, values map[string]types.AttributeValue) bool {
	return numOf(item["expires_ms"]) < numOf(values[":now"])
}

func (f *fakeRecordsAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeRecordsAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeRecordsAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	item, ok := f.items[k]
	if in.ConditionExpression != nil && (!ok || !expiredBefore(item, in.ExpressionAttributeValues)) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	delete(f.items, k)
	out := &dynamodb.DeleteItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld && ok {
		out.Attributes = item
	}
	return out, nil
}

func (f *fakeRecordsAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if in.ExclusiveStartKey != nil {
		start := keyOf(in.ExclusiveStartKey)
		i := sort.SearchStrings(keys, start)
		if i < len(keys) && keys[i] == start {
			i++
		}
		keys = keys[i:]
	}
	out := &dynamodb.ScanOutput{}
	for i, k := range keys {
		if f.pageSize > 0 && i == f.pageSize {
			out.LastEvaluatedKey = strKey("record_key", keys[i-1])
			break
		}
		if expiredBefore(f.items[k], in.ExpressionAttributeValues) {
			out.Items = append(out.Items, strKey("record_key", k))
		}
	}
	return out, nil
}

func (f *fakeRecordsAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactCalls++
	if len(in.TransactItems) > maxTransactItems {
		return nil, fmt.Errorf("too many transact items: %d", len(in.TransactItems))
	}
	if f.rewriteOnTransact != "" {
		if item, ok := f.items[f.rewriteOnTransact]; ok {
			item["expires_ms"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Add(time.Hour).UnixMilli(), 10)}
		}
	}
	for _, ti := range in.TransactItems {
		item, ok := f.items[keyOf(ti.Delete.Key)]
		if !ok || !expiredBefore(item, ti.Delete.ExpressionAttributeValues) {
			return nil, &types.TransactionCanceledException{Message: aws.String("ConditionalCheckFailed")}
		}
	}
	for _, ti := range in.TransactItems {
		delete(f.items, keyOf(ti.Delete.Key))
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeRecordsAPI) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[key]
	return ok
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func putRecord(t *testing.T, r *RecordRepo, key string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, r.Put(context.Background(), domain.ExpiringRecord{
		Key:       key,
		Payload:   []byte(`{"k":"` + key + `"}`),
		CreatedAt: expiresAt.Add(-24 * time.Hour),
		ExpiresAt: expiresAt,
	}))
}

func TestRecordRepo_PutGet_RoundTrip(t *testing.T) {
	api := newFakeRecordsAPI()
	r := NewRecordRepo(api, "pending_orders")
	putRecord(t, r, "tok", t0)

	got, err := r.Get(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Key)
	assert.Equal(t, `{"k":"tok"}`, string(got.Payload))
	assert.True(t, got.ExpiresAt.Equal(t0))
	assert.True(t, got.CreatedAt.Equal(t0.Add(-24*time.Hour)))

	ttl, ok := api.items["tok"]["expires_at"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(t0.Unix(), 10), ttl.Value)
	_, isBinary := api.items["tok"]["payload"].(*types.AttributeValueMemberB)
	assert.True(t, isBinary)
}

func TestRecordRepo_GetMissing(t *testing.T) {
	r := NewRecordRepo(newFakeRecordsAPI(), "pending_orders")

	_, err := r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordRepo_Take(t *testing.T) {
	api := newFakeRecordsAPI()
	r := NewRecordRepo(api, "pending_orders")
	putRecord(t, r, "tok", t0)
	ctx := context.Background()

	got, err := r.Take(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, `{"k":"tok"}`, string(got.Payload))
	assert.False(t, api.has("tok"))

	_, err = r.Take(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordRepo_DeleteIdempotent(t *testing.T) {
	r := NewRecordRepo(newFakeRecordsAPI(), "pending_orders")
	ctx := context.Background()

	require.NoError(t, r.Delete(ctx, "tok"))
	putRecord(t, r, "tok", t0)
	require.NoError(t, r.Delete(ctx, "tok"))
	require.NoError(t, r.Delete(ctx, "tok"))
}

func TestRecordRepo_DeleteExpired_AllAndOnlyExpired(t *testing.T) {
	api := newFakeRecordsAPI()
	r := NewRecordRepo(api, "pending_orders")
	putRecord(t, r, "a-old", t0.Add(-time.Second))
	putRecord(t, r, "b-edge", t0)
	putRecord(t, r, "c-fresh", t0.Add(time.Hour))

	n, err := r.DeleteExpired(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, api.has("a-old"))
	assert.True(t, api.has("b-edge"))
	assert.True(t, api.has("c-fresh"))
	assert.Equal(t, 1, api.transactCalls)
}

func TestRecordRepo_DeleteExpired_ChunksAndPages(t *testing.T) {
	api := newFakeRecordsAPI()
	api.pageSize = 40
	r := NewRecordRepo(api, "pending_orders")
	for i := 0; i < 250; i++ {
		putRecord(t, r, fmt.Sprintf("old-%03d", i), t0.Add(-time.Minute))
	}
	putRecord(t, r, "zz-fresh", t0.Add(time.Minute))

	n, err := r.DeleteExpired(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.Equal(t, 3, api.transactCalls)
	assert.True(t, api.has("zz-fresh"))
	assert.Len(t, api.items, 1)
}

func TestRecordRepo_DeleteExpired_CancelledChunkFallsBackPerItem(t *testing.T) {
	api := newFakeRecordsAPI()
	r := NewRecordRepo(api, "pending_orders")
	putRecord(t, r, "a", t0.Add(-time.Minute))
	putRecord(t, r, "b", t0.Add(-time.Minute))
	putRecord(t, r, "c", t0.Add(-time.Minute))
	api.rewriteOnTransact = "b"

	n, err := r.DeleteExpired(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, api.has("a"))
	assert.True(t, api.has("b"))
	assert.False(t, api.has("c"))
}

func TestRecordRepo_DeleteExpired_Empty(t *testing.T) {
	api := newFakeRecordsAPI()
	r := NewRecordRepo(api, "pending_orders")

	n, err := r.DeleteExpired(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, api.transactCalls)
}
