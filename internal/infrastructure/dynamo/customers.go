package dynamo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/print-order-api/internal/domain"
)

// CustomerRepo provides typed DynamoDB operations for the customers table.
// PK: customer_id, GSI: email-index
type CustomerRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCustomerRepo(client *dynamodb.Client, tableName string) *CustomerRepo {
	return &CustomerRepo{client: client, tableName: tableName}
}

func (r *CustomerRepo) Put(ctx context.Context, c *domain.Customer) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal customer: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *CustomerRepo) Get(ctx context.Context, customerID string) (*domain.Customer, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("customer_id", customerID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("customer not found: %w", domain.ErrNotFound)
	}
	var c domain.Customer
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("email-index"),
		KeyConditionExpression: aws.String("email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: strings.TrimSpace(email)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("customer not found: %w", domain.ErrNotFound)
	}
	var c domain.Customer
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update overwrites the customer's contact fields. Returns domain.ErrNotFound
// when no customer has customerID.
func (r *CustomerRepo) Update(ctx context.Context, customerID string, f domain.CustomerFields) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldFirstName:   f.FirstName,
		fieldLastName:    f.LastName,
		fieldEmail:       f.Email,
		fieldAddress:     f.Address,
		fieldZip:         f.Zip,
		fieldCity:        f.City,
		fieldCompany:     f.Company,
		fieldCountryCode: f.CountryCode,
		fieldUpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("customer_id", customerID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(customer_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return notFoundIfConditionFailed(err, "customer")
}
