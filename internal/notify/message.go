package notify

import (
	"fmt"

	"github.com/twilio/twilio-go/twiml"

	"github.com/rewired-gh/premiumwatch/internal/models"
)

// AlertText renders the chat message body for an alert.
func AlertText(alert models.Alert) string {
	s := alert.Sample
	return fmt.Sprintf("🚨 %s PREMIUM ALERT!\n\nPremium: %.2f%%\nMarket Price: ₹%.2f\nEst. iNAV: ₹%.2f\n\nTarget premium reached, time to buy 🎯",
		alert.FundName, s.PremiumPct, s.Quote.MarketPrice, s.INAV)
}

// AlertTwiML renders the voice call script for an alert. The message is read twice.
func AlertTwiML(alert models.Alert) (string, error) {
	say := twiml.VoiceSay{
		Message: fmt.Sprintf("Alert! %s premium is now %.1f percent. Time to buy!", alert.FundName, alert.Sample.PremiumPct),
		Voice:   "alice",
		Loop:    "2",
	}
	return twiml.Voice([]twiml.Element{say})
}
