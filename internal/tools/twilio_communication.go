package tools

import (
	"context"
	"net/url"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/service"
)

var twilioKeys = []string{config.EnvTwilioAccountSID, config.EnvTwilioAuthToken}

// TwilioTool sends an SMS or WhatsApp message, or places a voice call.
// defaultFrom and defaultWhatsApp are used when the call omits from.
func TwilioTool(tw Messenger, defaultFrom, defaultWhatsApp string) Tool {
	return Tool{
		Name:        "twilio_communication",
		Description: "Send an SMS or WhatsApp message, or place a voice call that plays TwiML from a URL, through Twilio.",
		InputSchema: object([]string{"channel", "to"}, props{
			"channel": enumProp("Communication channel", "", "sms", "voice", "whatsapp"),
			"to":      stringProp("Recipient phone number in E.164 format"),
			"from":    stringProp("Sender number; defaults to the configured Twilio number"),
			"message": stringProp("Message text (sms, whatsapp)"),
			"url":     stringProp("TwiML URL for the call (voice)"),
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if tw == nil {
				return nil, result.NotConfigured(twilioKeys...)
			}
			channel, err := args.RequireOneOf(input, "channel", "sms", "voice", "whatsapp")
			if err != nil {
				return nil, err
			}
			to, err := args.RequireString(input, "to")
			if err != nil {
				return nil, err
			}

			def, fromKey := defaultFrom, config.EnvTwilioPhoneNumber
			if channel == "whatsapp" {
				def, fromKey = defaultWhatsApp, config.EnvTwilioWhatsAppNumber
			}
			from, err := args.String(input, "from", def)
			if err != nil {
				return nil, err
			}
			if from == "" {
				return nil, result.InvalidArgument("from is required when %s is not set", fromKey).With("argument", "from")
			}

			switch channel {
			case "voice":
				twiml, err := args.RequireString(input, "url")
				if err != nil {
					return nil, err
				}
				if u, err := url.Parse(twiml); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
					return nil, result.InvalidArgument("url must be an http(s) URL").With("argument", "url")
				}
				rc, err := tw.Call(ctx, to, from, twiml)
				if err != nil {
					return nil, err
				}
				return receipt(rc), nil
			default:
				message, err := args.RequireString(input, "message")
				if err != nil {
					return nil, err
				}
				send := tw.SendSMS
				if channel == "whatsapp" {
					send = tw.SendWhatsApp
				}
				rc, err := send(ctx, to, from, message)
				if err != nil {
					return nil, err
				}
				return receipt(rc), nil
			}
		},
	}
}

func receipt(rc *service.MessageReceipt) map[string]any {
	return map[string]any{
		"sid":     rc.SID,
		"status":  rc.Status,
		"channel": rc.Channel,
		"to":      rc.To,
		"from":    rc.From,
	}
}
