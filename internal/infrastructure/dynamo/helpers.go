package dynamo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/print-order-api/internal/domain"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is a SET expression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Fields are emitted in sorted order so the expression is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (*updateExpr, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := &updateExpr{
		Expr:   "SET ",
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		if i > 0 {
			ue.Expr += ", "
		}
		ue.Expr += fmt.Sprintf("%s = %s", nameKey, valueKey)
	}
	return ue, nil
}

// notFoundIfConditionFailed maps a failed attribute_exists condition to domain.ErrNotFound.
func notFoundIfConditionFailed(err error, what string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s not found: %w", what, domain.ErrNotFound)
	}
	return err
}
