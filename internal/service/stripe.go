package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/toolrelay/toolrelay/internal/result"
)

// Payment is a created PaymentIntent without its client secret.
type Payment struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Customer string `json:"customer,omitempty"`
}

type Subscription struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Customer         string `json:"customer"`
	CurrentPeriodEnd int64  `json:"current_period_end,omitempty"`
}

type Invoice struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Customer  string `json:"customer"`
	AmountDue int64  `json:"amount_due"`
	URL       string `json:"hosted_invoice_url,omitempty"`
}

type Customer struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Created int64  `json:"created"`
	Balance int64  `json:"balance"`
}

type Transaction struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Paid        bool   `json:"paid"`
	Customer    string `json:"customer,omitempty"`
	Description string `json:"description,omitempty"`
	Created     int64  `json:"created"`
}

// PaymentInput describes a PaymentIntent. Amount is in the currency's
// smallest unit.
type PaymentInput struct {
	Amount      int64
	Currency    string
	Customer    string
	Description string
}

// Stripe wraps a per-key client so several keys can coexist in one process.
type Stripe struct {
	api *client.API
}

func NewStripe(key string, opts ...Option) *Stripe {
	o := buildOptions("", opts)
	cfg := &stripe.BackendConfig{
		HTTPClient:        o.httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if o.baseURL != "" {
		cfg.URL = stripe.String(o.baseURL)
	}
	api := &client.API{}
	api.Init(key, stripe.NewBackendsWithConfig(cfg))
	return &Stripe{api: api}
}

func (s *Stripe) CreatePayment(ctx context.Context, in PaymentInput) (*Payment, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(in.Currency),
	}
	if in.Customer != "" {
		params.Customer = stripe.String(in.Customer)
	}
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, stripeError(err)
	}
	out := &Payment{ID: pi.ID, Status: string(pi.Status), Amount: pi.Amount, Currency: string(pi.Currency)}
	if pi.Customer != nil {
		out.Customer = pi.Customer.ID
	}
	return out, nil
}

func (s *Stripe) CreateSubscription(ctx context.Context, customer, price string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customer),
		Items:    []*stripe.SubscriptionItemsParams{{Price: stripe.String(price)}},
	}
	params.Context = ctx

	sub, err := s.api.Subscriptions.New(params)
	if err != nil {
		return nil, stripeError(err)
	}
	out := &Subscription{ID: sub.ID, Status: string(sub.Status), CurrentPeriodEnd: sub.CurrentPeriodEnd}
	if sub.Customer != nil {
		out.Customer = sub.Customer.ID
	}
	return out, nil
}

func (s *Stripe) CreateInvoice(ctx context.Context, customer, description string, autoAdvance bool) (*Invoice, error) {
	params := &stripe.InvoiceParams{
		Customer:    stripe.String(customer),
		AutoAdvance: stripe.Bool(autoAdvance),
	}
	if description != "" {
		params.Description = stripe.String(description)
	}
	params.Context = ctx

	inv, err := s.api.Invoices.New(params)
	if err != nil {
		return nil, stripeError(err)
	}
	out := &Invoice{ID: inv.ID, Status: string(inv.Status), AmountDue: inv.AmountDue, URL: inv.HostedInvoiceURL}
	if inv.Customer != nil {
		out.Customer = inv.Customer.ID
	}
	return out, nil
}

func (s *Stripe) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := s.api.Customers.Get(id, params)
	if err != nil {
		return nil, stripeError(err)
	}
	return &Customer{ID: c.ID, Email: c.Email, Name: c.Name, Created: c.Created, Balance: c.Balance}, nil
}

// ListTransactions returns the most recent charges, optionally for one
// customer.
func (s *Stripe) ListTransactions(ctx context.Context, customer string, limit int) ([]Transaction, error) {
	params := &stripe.ChargeListParams{}
	if customer != "" {
		params.Customer = stripe.String(customer)
	}
	params.Limit = stripe.Int64(int64(limit))
	params.Context = ctx

	out := []Transaction{}
	it := s.api.Charges.List(params)
	for len(out) < limit && it.Next() {
		ch := it.Charge()
		tx := Transaction{
			ID:          ch.ID,
			Amount:      ch.Amount,
			Currency:    string(ch.Currency),
			Status:      string(ch.Status),
			Paid:        ch.Paid,
			Description: ch.Description,
			Created:     ch.Created,
		}
		if ch.Customer != nil {
			tx.Customer = ch.Customer.ID
		}
		out = append(out, tx)
	}
	if err := it.Err(); err != nil {
		return nil, stripeError(err)
	}
	return out, nil
}

func stripeError(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		e := result.ProviderFailure("stripe", serr.HTTPStatusCode, "stripe error: "+serr.Msg)
		if serr.Code != "" {
			e = e.With("code", string(serr.Code))
		}
		return e
	}
	return fmt.Errorf("stripe: %w", err)
}
