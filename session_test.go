package snapkeeper

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSTS struct {
	stsiface.STSAPI
	err error
}

func (m *mockSTS) GetCallerIdentityWithContext(ctx aws.Context, input *sts.GetCallerIdentityInput,
	opts ...request.Option) (*sts.GetCallerIdentityOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}, nil
}

func TestVerifyCredentials(t *testing.T) {
	account, err := verifyCredentials(context.Background(), &mockSTS{})
	require.NoError(t, err)
	assert.Equal(t, "123456789012", account)

	_, err = verifyCredentials(context.Background(), &mockSTS{err: awserr.New("InvalidClientTokenId", "bad token", nil)})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestNewSession(t *testing.T) {
	sess, err := NewSession(SessionInput{
		Region:    "eu-west-1",
		AccessKey: "AKIAEXAMPLE",
		SecretKey: "secret",
		ProxyHost: "proxy.internal",
		ProxyPort: 3128,
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", aws.StringValue(sess.Config.Region))

	creds, err := sess.Config.Credentials.Get()
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", creds.AccessKeyID)
}

func TestProxyClient(t *testing.T) {
	client, err := proxyClient("proxy.internal", 3128)
	require.NoError(t, err)
	require.NotNil(t, client.Transport)

	_, err = proxyClient("proxy internal:bad", 0)
	assert.Error(t, err)
}
