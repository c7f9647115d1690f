package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/rewired-gh/premiumwatch/internal/models"
)

// TwilioAPI is the subset of the Twilio REST API used by the senders.
type TwilioAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// NewTwilioAPI builds a REST client from account credentials.
func NewTwilioAPI(accountSID, authToken string) TwilioAPI {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return client.Api
}

// WhatsAppSender sends the alert text as a WhatsApp message.
type WhatsAppSender struct {
	api  TwilioAPI
	from string
	to   string
}

// NewWhatsAppSender creates a sender; both numbers get the whatsapp: prefix if missing.
func NewWhatsAppSender(api TwilioAPI, from, to string) *WhatsAppSender {
	return &WhatsAppSender{api: api, from: whatsappAddr(from), to: whatsappAddr(to)}
}

func whatsappAddr(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (s *WhatsAppSender) Send(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(s.to)
	params.SetBody(AlertText(alert))

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *WhatsAppSender) Name() string {
	return "whatsapp"
}

// VoiceSender places a phone call that reads the premium aloud.
type VoiceSender struct {
	api  TwilioAPI
	from string
	to   string
}

// NewVoiceSender creates a sender calling to from the Twilio number from.
func NewVoiceSender(api TwilioAPI, from, to string) *VoiceSender {
	return &VoiceSender{api: api, from: from, to: to}
}

func (s *VoiceSender) Send(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	script, err := AlertTwiML(alert)
	if err != nil {
		return fmt.Errorf("render twiml: %w", err)
	}
	params := &twilioApi.CreateCallParams{}
	params.SetFrom(s.from)
	params.SetTo(s.to)
	params.SetTwiml(script)

	if _, err := s.api.CreateCall(params); err != nil {
		return fmt.Errorf("create call: %w", err)
	}
	return nil
}

func (s *VoiceSender) Name() string {
	return "voice"
}
