package snapkeeper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
)

// SessionInput describes how to reach AWS. Empty fields fall back to
// the SDK defaults (environment, shared config, instance role).
type SessionInput struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	ProxyHost string
	ProxyPort int
}

// NewSession builds an AWS session from input. Static credentials are
// only used when AccessKey is set; otherwise the default credential
// chain, including IAM roles, applies.
func NewSession(input SessionInput) (*session.Session, error) {
	cfg := aws.NewConfig()
	if input.Region != "" {
		cfg = cfg.WithRegion(input.Region)
	}
	if input.Endpoint != "" {
		cfg = cfg.WithEndpoint(input.Endpoint)
	}
	if input.AccessKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(input.AccessKey, input.SecretKey, ""))
	}
	if input.ProxyHost != "" {
		client, err := proxyClient(input.ProxyHost, input.ProxyPort)
		if err != nil {
			return nil, err
		}
		cfg = cfg.WithHTTPClient(client)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, Fatal("creating aws session", err)
	}
	return sess, nil
}

func proxyClient(host string, port int) (*http.Client, error) {
	addr := host
	if port > 0 {
		addr = net.JoinHostPort(host, fmt.Sprint(port))
	}
	proxyURL, err := url.Parse("http://" + addr)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy address %q: %w", addr, err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(proxyURL)
	return &http.Client{Transport: transport}, nil
}

// VerifyCredentials asks STS who the session belongs to and returns
// the account number. Any failure is fatal since no other call could
// succeed either.
func VerifyCredentials(ctx context.Context, sess *session.Session) (account string, err error) {
	return verifyCredentials(ctx, sts.New(sess))
}

func verifyCredentials(ctx context.Context, svc stsiface.STSAPI) (account string, err error) {
	gci, err := svc.GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return account, Fatal("verifying credentials", err)
	}
	return aws.StringValue(gci.Account), nil
}
