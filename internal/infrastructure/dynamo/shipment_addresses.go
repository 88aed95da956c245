package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/print-order-api/internal/domain"
)

// ShipmentAddressRepo stores delivery addresses that differ from the billing address.
// PK: address_id, GSI: address_key-index, customer_id-index
type ShipmentAddressRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewShipmentAddressRepo(client *dynamodb.Client, tableName string) *ShipmentAddressRepo {
	return &ShipmentAddressRepo{client: client, tableName: tableName}
}

func (r *ShipmentAddressRepo) Put(ctx context.Context, a *domain.ShipmentAddress) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal shipment address: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// FindByKey returns the first address stored under the name|street|zip|city key.
func (r *ShipmentAddressRepo) FindByKey(ctx context.Context, addressKey string) (*domain.ShipmentAddress, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("address_key-index"),
		KeyConditionExpression: aws.String("address_key = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: addressKey},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("shipment address not found: %w", domain.ErrNotFound)
	}
	var a domain.ShipmentAddress
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByCustomer returns every address linked to customerID, following pagination.
func (r *ShipmentAddressRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.ShipmentAddress, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("customer_id-index"),
		KeyConditionExpression: aws.String("customer_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: customerID},
		},
	})
	addresses := []domain.ShipmentAddress{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.ShipmentAddress
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		addresses = append(addresses, batch...)
	}
	return addresses, nil
}
