package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/print-order-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestSendSMS(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.PhoneNumber) == "+4915112345678" && aws.ToString(in.Message) == "new order"
	})).Return(&sns.PublishOutput{}, nil)

	err := NewSenderWithClient(pub).SendSMS(context.Background(), "+4915112345678", "new order")
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestSendSMS_Failure(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := NewSenderWithClient(pub).SendSMS(context.Background(), "+49151", "x")
	assert.True(t, errors.Is(err, domain.ErrNotification))
}
