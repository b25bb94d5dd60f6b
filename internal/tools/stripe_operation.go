package tools

import (
	"context"
	"strings"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/service"
)

var stripeOperations = []string{
	"create_payment", "create_subscription", "create_invoice",
	"get_customer", "list_transactions",
}

// StripeTool creates payments, subscriptions and invoices and reads customer
// data from Stripe.
func StripeTool(payments Payments) Tool {
	return Tool{
		Name:        "stripe_operation",
		Description: "Create payments, subscriptions and invoices, or look up customers and recent transactions in Stripe.",
		InputSchema: object([]string{"operation", "data"}, props{
			"operation": enumProp("Operation to perform", "", stripeOperations...),
			"data": objectProp("Operation data. create_payment takes amount (smallest currency unit), currency, " +
				"customer_id, description; create_subscription takes customer_id and price_id; " +
				"create_invoice takes customer_id, description, auto_advance; get_customer takes customer_id; " +
				"list_transactions takes customer_id and limit"),
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if payments == nil {
				return nil, result.NotConfigured(config.EnvStripeKey)
			}
			operation, err := args.RequireOneOf(input, "operation", stripeOperations...)
			if err != nil {
				return nil, err
			}
			data, err := args.RequireMap(input, "data")
			if err != nil {
				return nil, err
			}

			out, err := runStripe(ctx, payments, operation, data)
			if err != nil {
				return nil, err
			}
			out["operation"] = operation
			return out, nil
		},
	}
}

func runStripe(ctx context.Context, s Payments, operation string, data map[string]any) (map[string]any, error) {
	switch operation {
	case "create_payment":
		amount, err := args.RequireInt(data, "amount")
		if err != nil {
			return nil, err
		}
		if amount <= 0 {
			return nil, result.InvalidArgument("amount must be positive").With("argument", "amount")
		}
		currency, err := args.String(data, "currency", "usd")
		if err != nil {
			return nil, err
		}
		customer, err := args.String(data, "customer_id", "")
		if err != nil {
			return nil, err
		}
		description, err := args.String(data, "description", "")
		if err != nil {
			return nil, err
		}
		p, err := s.CreatePayment(ctx, service.PaymentInput{
			Amount:      int64(amount),
			Currency:    strings.ToLower(currency),
			Customer:    customer,
			Description: description,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"payment": p}, nil

	case "create_subscription":
		customer, err := args.RequireString(data, "customer_id")
		if err != nil {
			return nil, err
		}
		price, err := args.RequireString(data, "price_id")
		if err != nil {
			return nil, err
		}
		sub, err := s.CreateSubscription(ctx, customer, price)
		if err != nil {
			return nil, err
		}
		return map[string]any{"subscription": sub}, nil

	case "create_invoice":
		customer, err := args.RequireString(data, "customer_id")
		if err != nil {
			return nil, err
		}
		description, err := args.String(data, "description", "")
		if err != nil {
			return nil, err
		}
		autoAdvance, err := args.Bool(data, "auto_advance", true)
		if err != nil {
			return nil, err
		}
		inv, err := s.CreateInvoice(ctx, customer, description, autoAdvance)
		if err != nil {
			return nil, err
		}
		return map[string]any{"invoice": inv}, nil

	case "get_customer":
		id, err := args.RequireString(data, "customer_id")
		if err != nil {
			return nil, err
		}
		c, err := s.GetCustomer(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"customer": c}, nil

	case "list_transactions":
		customer, err := args.String(data, "customer_id", "")
		if err != nil {
			return nil, err
		}
		limit, err := args.IntInRange(data, "limit", 10, 1, 100)
		if err != nil {
			return nil, err
		}
		txs, err := s.ListTransactions(ctx, customer, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"transactions": nonNil(txs), "count": len(txs)}, nil
	}
	return nil, result.InvalidArgument("unsupported operation %q", operation).With("argument", "operation")
}
