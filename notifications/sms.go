package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSNotifier texts every recipient that has a phone number through Twilio.
type SMSNotifier struct {
	client messageCreator
	from   string
}

func NewSMSNotifier(accountSID, authToken, from string) *SMSNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSNotifier{client: client.Api, from: from}
}

func (s *SMSNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, r := range n.Recipients {
		if r.Phone == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(r.Phone)
		params.SetFrom(s.from)
		params.SetBody(n.Message())
		if _, err := s.client.CreateMessage(params); err != nil {
			errs = append(errs, fmt.Errorf("failed to send sms to %s: %w", r.Name, err))
		}
	}
	return errors.Join(errs...)
}
