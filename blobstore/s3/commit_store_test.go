package s3

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/bowgo/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB mock.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func (m *mockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}

	// Descending by version, matching ScanIndexForward=false.
	for i := 0; i < len(items)-1; i++ {
		for j := i + 1; j < len(items); j++ {
			vi := items[i]["version"].(*types.AttributeValueMemberN).Value
			vj := items[j]["version"].(*types.AttributeValueMemberN).Value
			if vi < vj {
				items[i], items[j] = items[j], items[i]
			}
		}
	}

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

func (m *mockDDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseURI := params.Key["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Key["version"].(*types.AttributeValueMemberN).Value

	if item, ok := m.items[baseURI+":"+version]; ok {
		return &dynamodb.GetItemOutput{Item: item}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Key["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Key["version"].(*types.AttributeValueMemberN).Value
	delete(m.items, baseURI+":"+version)
	return &dynamodb.DeleteItemOutput{}, nil
}

func newTestCommitStore(ddb *mockDDBClient, baseURI string) *CommitStore {
	return NewCommitStore(blobstore.NewMemoryStore(), ddb, "bowgo-commits", baseURI)
}

func readCurrent(t *testing.T, store *CommitStore) string {
	t.Helper()

	blob, err := store.Open(context.Background(), CurrentName)
	require.NoError(t, err)
	defer blob.Close()

	data, err := blobstore.ReadAll(context.Background(), blob)
	require.NoError(t, err)
	return string(data)
}

func TestCommitStore_FirstCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestCommitStore(newMockDDBClient(), "s3://test-bucket/catalogs/")

	err := store.Put(ctx, CurrentName, []byte("catalog-00001.bow"))
	require.NoError(t, err)

	assert.Equal(t, "catalog-00001.bow", readCurrent(t, store))
}

func TestCommitStore_MultipleCommits(t *testing.T) {
	ctx := context.Background()
	store := newTestCommitStore(newMockDDBClient(), "s3://test-bucket/catalogs/")

	for i := 1; i <= 3; i++ {
		err := store.Put(ctx, CurrentName, fmt.Appendf(nil, "catalog-%05d.bow", i))
		require.NoError(t, err)
	}

	assert.Equal(t, "catalog-00003.bow", readCurrent(t, store))
}

func TestCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	store := newTestCommitStore(newMockDDBClient(), "s3://test-bucket/catalogs/")

	require.NoError(t, store.Put(ctx, CurrentName, []byte("catalog-00001.bow")))

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	conflicts := 0

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := store.Put(ctx, CurrentName, fmt.Appendf(nil, "catalog-%05d.bow", id+2))
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				successes++
			case ErrConcurrentModification:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Greater(t, successes, 0, "at least one writer should succeed")
}

func TestCommitStore_NotFoundBeforeCommit(t *testing.T) {
	store := newTestCommitStore(newMockDDBClient(), "s3://test-bucket/catalogs/")

	_, err := store.Open(context.Background(), CurrentName)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestCommitStore_IsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()

	store1 := newTestCommitStore(ddb, "s3://bucket-a/catalogs/")
	store2 := newTestCommitStore(ddb, "s3://bucket-b/catalogs/")

	require.NoError(t, store1.Put(ctx, CurrentName, []byte("catalog-a.bow")))
	require.NoError(t, store2.Put(ctx, CurrentName, []byte("catalog-b.bow")))

	assert.Equal(t, "catalog-a.bow", readCurrent(t, store1))
	assert.Equal(t, "catalog-b.bow", readCurrent(t, store2))
}

func TestCommitStore_PassesThroughDataBlobs(t *testing.T) {
	ctx := context.Background()
	store := newTestCommitStore(newMockDDBClient(), "s3://test-bucket/catalogs/")

	require.NoError(t, store.Put(ctx, "catalog-00001.bow", []byte("snapshot bytes")))

	blob, err := store.Open(ctx, "catalog-00001.bow")
	require.NoError(t, err)
	defer blob.Close()

	data, err := blobstore.ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "snapshot bytes", string(data))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"catalog-00001.bow"}, names)
}
