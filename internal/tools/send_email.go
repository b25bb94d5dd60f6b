package tools

import (
	"context"
	"net/mail"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/service"
)

var mailProviders = providers[Mailer]{
	order: []string{"sendgrid", "mailgun"},
	keys: map[string][]string{
		"sendgrid": {config.EnvSendGridKey},
		"mailgun":  {config.EnvMailgunKey, config.EnvMailgunDomain},
	},
}

// SendEmailTool sends a transactional email through SendGrid or Mailgun.
func SendEmailTool(mailers map[string]Mailer) Tool {
	p := mailProviders
	p.impl = mailers

	return Tool{
		Name:        "send_email",
		Description: "Send a transactional email through SendGrid or Mailgun. HTML bodies are detected automatically.",
		InputSchema: object([]string{"to", "from", "subject", "body"}, props{
			"provider":    enumProp("Email provider; defaults to the first configured one", "", p.order...),
			"to":          stringOrListProp("Recipient address or list of addresses"),
			"from":        stringProp("Sender address"),
			"subject":     stringProp("Subject line"),
			"body":        stringProp("Plain text or HTML body"),
			"template_id": stringProp("Provider template to render instead of body"),
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if err := p.gate(); err != nil {
				return nil, err
			}
			provider, err := args.OneOf(input, "provider", firstConfigured(p), p.order...)
			if err != nil {
				return nil, err
			}
			mailer, err := p.get(provider)
			if err != nil {
				return nil, err
			}

			to, err := args.RequireStringList(input, "to")
			if err != nil {
				return nil, err
			}
			from, err := args.RequireString(input, "from")
			if err != nil {
				return nil, err
			}
			subject, err := args.RequireString(input, "subject")
			if err != nil {
				return nil, err
			}
			body, err := args.RequireString(input, "body")
			if err != nil {
				return nil, err
			}
			templateID, err := args.String(input, "template_id", "")
			if err != nil {
				return nil, err
			}
			if _, err := mail.ParseAddress(from); err != nil {
				return nil, result.InvalidArgument("invalid email address %q", from).With("argument", "from")
			}
			for _, addr := range to {
				if _, err := mail.ParseAddress(addr); err != nil {
					return nil, result.InvalidArgument("invalid email address %q", addr).With("argument", "to")
				}
			}

			rc, err := mailer.Send(ctx, service.Email{
				From:       from,
				To:         to,
				Subject:    subject,
				Body:       body,
				TemplateID: templateID,
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"provider":   provider,
				"message_id": rc.MessageID,
				"status":     rc.Status,
				"recipients": len(to),
			}, nil
		},
	}
}

// firstConfigured returns the first provider in p's order that is set.
func firstConfigured[T any](p providers[T]) string {
	for _, name := range p.order {
		if _, ok := p.impl[name]; ok {
			return name
		}
	}
	return p.order[0]
}
