package dynamo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/print-order-api/internal/domain"
)

// shopConfigItem keeps the document as a JSON string so arbitrary nesting
// survives without attribute-type mapping.
type shopConfigItem struct {
	DocID     string    `dynamodbav:"doc_id"`
	Config    string    `dynamodbav:"config"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// ShopConfigRepo stores storefront configuration documents.
// PK: doc_id
type ShopConfigRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewShopConfigRepo(client *dynamodb.Client, tableName string) *ShopConfigRepo {
	return &ShopConfigRepo{client: client, tableName: tableName}
}

func (r *ShopConfigRepo) Get(ctx context.Context, docID string) (*domain.ShopConfig, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("doc_id", docID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("config %s not found: %w", docID, domain.ErrNotFound)
	}
	var item shopConfigItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &domain.ShopConfig{
		DocID:     item.DocID,
		Config:    json.RawMessage(item.Config),
		UpdatedAt: item.UpdatedAt,
	}, nil
}

func (r *ShopConfigRepo) Put(ctx context.Context, c *domain.ShopConfig) error {
	item, err := attributevalue.MarshalMap(shopConfigItem{
		DocID:     c.DocID,
		Config:    string(c.Config),
		UpdatedAt: c.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal shop config: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}
