package snapkeeper

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
)

// snsSubjectLimit is the longest subject SNS accepts.
const snsSubjectLimit = 100

// SNSNotifier publishes notifications to an SNS topic.
type SNSNotifier struct {
	svc snsiface.SNSAPI
}

// NewSNSNotifier returns a Notifier publishing with sess.
func NewSNSNotifier(sess *session.Session) *SNSNotifier {
	return &SNSNotifier{svc: sns.New(sess)}
}

// Publish sends message to the topic ARN. Subjects longer than SNS
// allows are cut short.
func (n *SNSNotifier) Publish(ctx context.Context, topic, subject, message string) error {
	subject = truncateSubject(subject)
	input := sns.PublishInput{
		TopicArn: aws.String(topic),
		Message:  aws.String(message),
	}
	if subject != "" {
		input.Subject = aws.String(subject)
	}
	if _, err := n.svc.PublishWithContext(ctx, &input); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// truncateSubject cuts subject to snsSubjectLimit bytes without
// splitting a multibyte character.
func truncateSubject(subject string) string {
	if len(subject) <= snsSubjectLimit {
		return subject
	}
	cut := snsSubjectLimit
	for cut > 0 && !utf8.RuneStart(subject[cut]) {
		cut--
	}
	return subject[:cut]
}
