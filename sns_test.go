package snapkeeper

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSNS struct {
	snsiface.SNSAPI
	inputs []*sns.PublishInput
	err    error
}

func (m *mockSNS) PublishWithContext(ctx aws.Context, input *sns.PublishInput,
	opts ...request.Option) (*sns.PublishOutput, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSPublish(t *testing.T) {
	svc := &mockSNS{}
	n := &SNSNotifier{svc: svc}

	require.NoError(t, n.Publish(context.Background(), "arn:topic", "Snapshots", "body"))
	require.Len(t, svc.inputs, 1)
	assert.Equal(t, "arn:topic", aws.StringValue(svc.inputs[0].TopicArn))
	assert.Equal(t, "Snapshots", aws.StringValue(svc.inputs[0].Subject))
	assert.Equal(t, "body", aws.StringValue(svc.inputs[0].Message))

	require.NoError(t, n.Publish(context.Background(), "arn:topic", strings.Repeat("s", 150), "body"))
	assert.Len(t, aws.StringValue(svc.inputs[1].Subject), snsSubjectLimit)

	require.NoError(t, n.Publish(context.Background(), "arn:topic", "", "body"))
	assert.Nil(t, svc.inputs[2].Subject)
}

func TestSNSPublishError(t *testing.T) {
	svc := &mockSNS{err: awserr.New(sns.ErrCodeNotFoundException, "topic does not exist", nil)}
	n := &SNSNotifier{svc: svc}

	err := n.Publish(context.Background(), "arn:topic", "Snapshots", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing to arn:topic")
}

func TestTruncateSubject(t *testing.T) {
	assert.Equal(t, "Snapshots", truncateSubject("Snapshots"))
	assert.Equal(t, strings.Repeat("a", 100), truncateSubject(strings.Repeat("a", 120)))

	// 40 three byte runes, the limit falls inside the 34th
	got := truncateSubject(strings.Repeat("€", 40))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("€", 33), got)
}
