package stripegateway

import (
	"context"
	"log/slog"

	"github.com/stripe/stripe-go/v74"
	stripeclient "github.com/stripe/stripe-go/v74/client"

	"github.com/frahmantamala/film-payments/internal/core/datamodel/gateway"
)

// Client wraps the Stripe SDK behind the normalized gateway types so the
// orchestrators never see provider structs.
type Client struct {
	api    *stripeclient.API
	logger *slog.Logger
}

func NewClient(secretKey string, logger *slog.Logger) *Client {
	api := &stripeclient.API{}
	api.Init(secretKey, nil)

	return &Client{
		api:    api,
		logger: logger,
	}
}

func (c *Client) CreateIntent(ctx context.Context, p gateway.CreateIntentParams) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(p.Currency),
	}

	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	if p.CardToken != "" {
		// Wallet tokens become a payment method first; the intent then
		// confirms against it like any other card.
		pm, err := c.api.PaymentMethods.New(&stripe.PaymentMethodParams{
			Params: stripe.Params{Context: ctx},
			Type:   stripe.String("card"),
			Card: &stripe.PaymentMethodCardParams{
				Token: stripe.String(p.CardToken),
			},
		})
		if err != nil {
			return nil, translateError(err)
		}
		p.PaymentMethodID = pm.ID
	}

	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
	}

	if p.Confirm {
		params.Confirm = stripe.Bool(true)
		params.ConfirmationMethod = stripe.String(string(stripe.PaymentIntentConfirmationMethodManual))
		if p.ReturnURL != "" {
			params.ReturnURL = stripe.String(p.ReturnURL)
		}
		params.AddExpand("latest_charge")
	} else {
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card"})
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(false),
		}
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, translateError(err)
	}

	c.logger.Info("stripe payment intent created",
		"intent_id", pi.ID,
		"amount", pi.Amount,
		"currency", pi.Currency,
		"status", pi.Status)

	return fromStripeIntent(pi), nil
}

func (c *Client) ConfirmIntent(ctx context.Context, intentID string, p gateway.ConfirmParams) (*gateway.Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		Params:        stripe.Params{Context: ctx},
		PaymentMethod: stripe.String(p.PaymentMethodID),
	}
	params.AddExpand("latest_charge")

	pi, err := c.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return nil, translateError(err)
	}

	c.logger.Info("stripe payment intent confirmed",
		"intent_id", pi.ID,
		"status", pi.Status,
		"amount", pi.Amount)

	return fromStripeIntent(pi), nil
}

// RegisterApplePayDomain registers the storefront domain for Apple Pay.
// An already-registered domain is not an error.
func (c *Client) RegisterApplePayDomain(ctx context.Context, domain string) error {
	_, err := c.api.ApplePayDomains.New(&stripe.ApplePayDomainParams{
		Params:     stripe.Params{Context: ctx},
		DomainName: stripe.String(domain),
	})
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && string(stripeErr.Code) == "domain_already_exists" {
			c.logger.Debug("apple pay domain already registered", "domain", domain)
			return nil
		}
		return translateError(err)
	}

	c.logger.Info("apple pay domain registered", "domain", domain)
	return nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *gateway.Intent {
	intent := &gateway.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Card:         extractCardDetails(pi),
	}

	if pi.LastPaymentError != nil {
		intent.LastError = &gateway.IntentError{
			Code:        string(pi.LastPaymentError.Code),
			DeclineCode: string(pi.LastPaymentError.DeclineCode),
			Message:     pi.LastPaymentError.Msg,
		}
	}

	return intent
}

// extractCardDetails reads brand/last4 from the expanded latest charge. Any
// missing piece substitutes unknown/0000 rather than failing the confirmation.
func extractCardDetails(pi *stripe.PaymentIntent) gateway.CardDetails {
	details := gateway.CardDetails{Brand: "unknown", Last4: "0000"}

	if pi.LatestCharge == nil || pi.LatestCharge.PaymentMethodDetails == nil {
		return details
	}
	card := pi.LatestCharge.PaymentMethodDetails.Card
	if card == nil {
		return details
	}

	if card.Brand != "" {
		details.Brand = string(card.Brand)
	}
	if card.Last4 != "" {
		details.Last4 = card.Last4
	}
	return details
}

func translateError(err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return &gateway.ProviderError{
			Code:        string(stripeErr.Code),
			DeclineCode: string(stripeErr.DeclineCode),
			Message:     stripeErr.Msg,
		}
	}
	return err
}
