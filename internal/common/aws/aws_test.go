package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type mockSNS struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func TestSESClient_SendText(t *testing.T) {
	var got *ses.SendEmailInput
	client := NewSESClientWithAPI(&mockSES{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			got = params
			return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
		},
	}, "cswd@example.gov")

	id, err := client.SendText(context.Background(), "maria@example.com", "Subject", "Body")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "cswd@example.gov", aws.ToString(got.Source))
	assert.Equal(t, []string{"maria@example.com"}, got.Destination.ToAddresses)
	assert.Equal(t, "Subject", aws.ToString(got.Message.Subject.Data))
	assert.Equal(t, "Body", aws.ToString(got.Message.Body.Text.Data))
}

func TestSESClient_SendText_Error(t *testing.T) {
	client := NewSESClientWithAPI(&mockSES{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}, "from@example.gov")

	_, err := client.SendText(context.Background(), "a@b.c", "s", "b")
	assert.EqualError(t, err, "throttled")
}

func TestSNSClient_SendSMS(t *testing.T) {
	var got *sns.PublishInput
	client := NewSNSClientWithAPI(&mockSNS{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			got = params
			return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
		},
	}, "CSWD")

	id, err := client.SendSMS(context.Background(), "+639171234567", "hello")
	require.NoError(t, err)
	assert.Equal(t, "sms-1", id)
	assert.Equal(t, "+639171234567", aws.ToString(got.PhoneNumber))
	assert.Equal(t, "CSWD", aws.ToString(got.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
	assert.Equal(t, "Transactional", aws.ToString(got.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
}

func TestSNSClient_NoSenderID(t *testing.T) {
	var got *sns.PublishInput
	client := NewSNSClientWithAPI(&mockSNS{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			got = params
			return &sns.PublishOutput{}, nil
		},
	}, "")

	_, err := client.SendSMS(context.Background(), "+639171234567", "hello")
	require.NoError(t, err)
	_, ok := got.MessageAttributes["AWS.SNS.SMS.SenderID"]
	assert.False(t, ok)
}
