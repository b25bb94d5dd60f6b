package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const twilioAPIBase = "https://api.twilio.com"

// MessageReceipt identifies a message or call Twilio accepted.
type MessageReceipt struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Channel string `json:"channel"`
	To      string `json:"to"`
	From    string `json:"from"`
}

// Twilio sends SMS, WhatsApp messages and voice calls.
type Twilio struct {
	client *twilio.RestClient
}

func NewTwilio(accountSID, authToken string, opts ...Option) *Twilio {
	o := buildOptions(twilioAPIBase, opts)
	hc := *o.httpClient
	if o.baseURL != twilioAPIBase {
		if base, err := url.Parse(o.baseURL); err == nil {
			hc.Transport = &rewriteTransport{base: base, next: hc.Transport}
		}
	}

	c := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(accountSID, authToken),
		HTTPClient:  &hc,
	}
	c.SetAccountSid(accountSID)
	return &Twilio{client: twilio.NewRestClientWithParams(twilio.ClientParams{Client: c})}
}

// whatsapp prefixes a number for the WhatsApp channel unless it already is.
func whatsapp(n string) string {
	if strings.HasPrefix(n, "whatsapp:") {
		return n
	}
	return "whatsapp:" + n
}

func (t *Twilio) SendSMS(_ context.Context, to, from, body string) (*MessageReceipt, error) {
	return t.sendMessage("sms", to, from, body)
}

func (t *Twilio) SendWhatsApp(_ context.Context, to, from, body string) (*MessageReceipt, error) {
	return t.sendMessage("whatsapp", whatsapp(to), whatsapp(from), body)
}

func (t *Twilio) sendMessage(channel, to, from, body string) (*MessageReceipt, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	msg, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return nil, twilioError(err)
	}
	return &MessageReceipt{
		SID:     deref(msg.Sid),
		Status:  deref(msg.Status),
		Channel: channel,
		To:      to,
		From:    from,
	}, nil
}

// Call places a voice call whose TwiML is fetched from twimlURL.
func (t *Twilio) Call(_ context.Context, to, from, twimlURL string) (*MessageReceipt, error) {
	params := &openapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetUrl(twimlURL)

	call, err := t.client.Api.CreateCall(params)
	if err != nil {
		return nil, twilioError(err)
	}
	return &MessageReceipt{
		SID:     deref(call.Sid),
		Status:  deref(call.Status),
		Channel: "voice",
		To:      to,
		From:    from,
	}, nil
}

func twilioError(err error) error {
	var terr *twilioclient.TwilioRestError
	if errors.As(err, &terr) {
		return result.ProviderFailure("twilio", terr.Status,
			fmt.Sprintf("twilio error %d: %s", terr.Code, terr.Message)).With("more_info", terr.MoreInfo)
	}
	return fmt.Errorf("twilio: %w", err)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// rewriteTransport sends every request to base, keeping the path. SDKs with
// a fixed host are pointed at regional or test endpoints this way.
type rewriteTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = rt.base.Scheme
	r.URL.Host = rt.base.Host
	r.URL.Path = strings.TrimRight(rt.base.Path, "/") + r.URL.Path
	r.Host = rt.base.Host
	next := rt.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(r)
}
