package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/print-order-api/internal/domain"
)

// JobRepo writes print jobs for the back office.
// PK: job_id, GSI: customer_id-jobstart-index
type JobRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewJobRepo(client *dynamodb.Client, tableName string) *JobRepo {
	return &JobRepo{client: client, tableName: tableName}
}

// Create stores a new job. It fails with domain.ErrConflict if the ID is taken.
func (r *JobRepo) Create(ctx context.Context, j *domain.Job) error {
	item, err := attributevalue.MarshalMap(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(job_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("job %s already exists: %w", j.JobID, domain.ErrConflict)
	}
	return err
}
