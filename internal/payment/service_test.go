package payment_test

import (
	"context"
	"log/slog"
	"os"

	errors "github.com/frahmantamala/film-payments/internal"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/gateway"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/purchase"
	"github.com/frahmantamala/film-payments/internal/currency"
	"github.com/frahmantamala/film-payments/internal/payment"
	"github.com/frahmantamala/film-payments/internal/purchases"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockGateway implements payment.Gateway for testing
type MockGateway struct {
	createParams  *gateway.CreateIntentParams
	createIntent  *gateway.Intent
	createErr     error
	confirmedID   string
	confirmParams *gateway.ConfirmParams
	confirmIntent *gateway.Intent
	confirmErr    error
	confirmCalls  int
	domains       []string
	domainErr     error
}

func (m *MockGateway) CreateIntent(ctx context.Context, p gateway.CreateIntentParams) (*gateway.Intent, error) {
	m.createParams = &p
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createIntent, nil
}

func (m *MockGateway) ConfirmIntent(ctx context.Context, intentID string, p gateway.ConfirmParams) (*gateway.Intent, error) {
	m.confirmCalls++
	m.confirmedID = intentID
	m.confirmParams = &p
	if m.confirmErr != nil {
		return nil, m.confirmErr
	}
	return m.confirmIntent, nil
}

func (m *MockGateway) RegisterApplePayDomain(ctx context.Context, domain string) error {
	m.domains = append(m.domains, domain)
	return m.domainErr
}

// MockRecorder implements payment.PurchaseRecorder for testing
type MockRecorder struct {
	recorded []purchases.RecordParams
}

func (m *MockRecorder) RecordPurchase(ctx context.Context, p purchases.RecordParams) *purchase.Purchase {
	m.recorded = append(m.recorded, p)
	return &purchase.Purchase{
		ID:            int64(len(m.recorded)),
		UserID:        p.UserID,
		FilmID:        p.FilmID,
		PaymentID:     p.PaymentID,
		AmountUSD:     p.AmountUSD,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethod,
		Status:        purchase.StatusCompleted,
	}
}

// MockRates implements payment.RateConverter with a fixed rate table
type MockRates struct {
	rates map[string]float64
	calls int
}

func (m *MockRates) Convert(ctx context.Context, amountUSD float64, currencyCode string) currency.Conversion {
	m.calls++
	rate, ok := m.rates[currencyCode]
	if !ok {
		return currency.Conversion{Currency: "USD", Symbol: "$", Rate: 1, AmountUSD: amountUSD, Amount: amountUSD, FellBack: true}
	}
	return currency.Conversion{Currency: currencyCode, Rate: rate, AmountUSD: amountUSD, Amount: amountUSD * rate}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ = Describe("Payment Service", func() {
	var (
		mockGateway  *MockGateway
		mockRecorder *MockRecorder
		mockRates    *MockRates
		service      *payment.Service
	)

	BeforeEach(func() {
		mockGateway = &MockGateway{}
		mockRecorder = &MockRecorder{}
		mockRates = &MockRates{rates: map[string]float64{"eur": 0.9, "jpy": 150}}
		service = payment.NewService(mockGateway, mockRecorder, mockRates, nil, true, testLogger())
	})

	validIntentRequest := func() *payment.CreateIntentRequest {
		return &payment.CreateIntentRequest{
			Amount: 12.99,
			FilmID: "film_42",
			UserID: "user_7",
			PaymentData: payment.BuyerData{
				CardholderName: "Ada Lovelace",
				Email:          "ada@example.com",
			},
		}
	}

	Describe("CreateIntent", func() {
		BeforeEach(func() {
			mockGateway.createIntent = &gateway.Intent{
				ID:           "pi_123",
				ClientSecret: "pi_123_secret",
				AmountMinor:  1299,
				Currency:     "usd",
				Status:       gateway.StatusRequiresPaymentMethod,
			}
		})

		It("should create a USD intent in minor units", func() {
			resp, err := service.CreateIntent(context.Background(), validIntentRequest())
			Expect(err).NotTo(HaveOccurred())

			Expect(mockGateway.createParams.AmountMinor).To(Equal(int64(1299)))
			Expect(mockGateway.createParams.Currency).To(Equal("usd"))
			Expect(resp.ID).To(Equal("pi_123"))
			Expect(resp.ClientSecret).To(Equal("pi_123_secret"))
			Expect(resp.Currency).To(Equal("USD"))
		})

		It("should carry film and user metadata to the provider", func() {
			_, err := service.CreateIntent(context.Background(), validIntentRequest())
			Expect(err).NotTo(HaveOccurred())

			Expect(mockGateway.createParams.Metadata["filmId"]).To(Equal("film_42"))
			Expect(mockGateway.createParams.Metadata["userId"]).To(Equal("user_7"))
			Expect(mockGateway.createParams.Metadata["email"]).To(Equal("ada@example.com"))
			Expect(mockGateway.createParams.Metadata["originalCurrency"]).To(Equal("USD"))
		})

		It("should honor a client-side converted amount without reconverting", func() {
			req := validIntentRequest()
			req.Currency = "EUR"
			req.OriginalAmount = 12.99
			req.ConvertedAmount = 11.69
			req.Amount = 11.69

			_, err := service.CreateIntent(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRates.calls).To(Equal(0))
			Expect(mockGateway.createParams.AmountMinor).To(Equal(int64(1169)))
			Expect(mockGateway.createParams.Currency).To(Equal("eur"))
		})

		It("should convert server-side when the client sends only a currency", func() {
			req := validIntentRequest()
			req.Currency = "EUR"

			_, err := service.CreateIntent(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRates.calls).To(Equal(1))
			// 12.99 * 0.9 = 11.691 -> 1169 minor units
			Expect(mockGateway.createParams.AmountMinor).To(Equal(int64(1169)))
			Expect(mockGateway.createParams.Currency).To(Equal("eur"))
		})

		It("should charge zero-decimal currencies without the 100 multiplier", func() {
			req := validIntentRequest()
			req.Currency = "JPY"
			req.Amount = 10

			_, err := service.CreateIntent(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			// 10 USD * 150 = 1500 JPY, wired as 1500
			Expect(mockGateway.createParams.AmountMinor).To(Equal(int64(1500)))
		})

		It("should fall back to charging USD when no rate is available", func() {
			req := validIntentRequest()
			req.Currency = "XYZ"

			_, err := service.CreateIntent(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(mockGateway.createParams.Currency).To(Equal("usd"))
			Expect(mockGateway.createParams.AmountMinor).To(Equal(int64(1299)))
		})

		It("should reject missing fields with a validation error", func() {
			req := validIntentRequest()
			req.FilmID = ""

			_, err := service.CreateIntent(context.Background(), req)
			Expect(err).To(HaveOccurred())
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
		})

		It("should surface provider rejection as payment_failed", func() {
			mockGateway.createErr = &gateway.ProviderError{
				Code:    "amount_too_small",
				Message: "Amount must be at least 50 cents",
			}

			_, err := service.CreateIntent(context.Background(), validIntentRequest())
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(402))
			Expect(appErr.Code).To(Equal(errors.ErrorCode("amount_too_small")))
		})

		Context("when the provider credential is absent", func() {
			BeforeEach(func() {
				service = payment.NewService(mockGateway, mockRecorder, mockRates, nil, false, testLogger())
			})

			It("should fail with a configuration error before any provider call", func() {
				_, err := service.CreateIntent(context.Background(), validIntentRequest())
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(500))
				Expect(appErr.Code).To(Equal(errors.ErrCodeProviderNotConfigured))
				Expect(mockGateway.createParams).To(BeNil())
			})
		})
	})

	Describe("ConfirmIntent", func() {
		validConfirmRequest := func() *payment.ConfirmRequest {
			return &payment.ConfirmRequest{
				PaymentIntentID: "pi_123",
				PaymentMethodID: "pm_456",
				Amount:          12.99,
				FilmID:          "film_42",
				UserID:          "user_7",
			}
		}

		Context("when the charge succeeds", func() {
			BeforeEach(func() {
				mockGateway.confirmIntent = &gateway.Intent{
					ID:          "pi_123",
					AmountMinor: 1299,
					Currency:    "usd",
					Status:      gateway.StatusSucceeded,
					Card:        gateway.CardDetails{Brand: "visa", Last4: "4242"},
				}
			})

			It("should confirm exactly once and record the purchase", func() {
				resp, err := service.ConfirmIntent(context.Background(), validConfirmRequest())
				Expect(err).NotTo(HaveOccurred())

				Expect(mockGateway.confirmCalls).To(Equal(1))
				Expect(mockGateway.confirmedID).To(Equal("pi_123"))
				Expect(mockGateway.confirmParams.PaymentMethodID).To(Equal("pm_456"))

				Expect(mockRecorder.recorded).To(HaveLen(1))
				Expect(mockRecorder.recorded[0].PaymentID).To(Equal("pi_123"))
				Expect(mockRecorder.recorded[0].AmountUSD).To(BeNumerically("~", 12.99, 1e-9))
				Expect(mockRecorder.recorded[0].PaymentMethod).To(Equal(purchase.MethodCard))

				Expect(resp.Status).To(Equal(gateway.StatusSucceeded))
				Expect(resp.PaymentMethod.Card.Brand).To(Equal("visa"))
				Expect(resp.PaymentMethod.Card.Last4).To(Equal("4242"))
				Expect(resp.Purchase).NotTo(BeNil())
			})

			It("should record the USD face amount when the charge was converted", func() {
				req := validConfirmRequest()
				req.Currency = "EUR"
				req.Amount = 11.69
				req.OriginalAmount = 12.99

				_, err := service.ConfirmIntent(context.Background(), req)
				Expect(err).NotTo(HaveOccurred())
				Expect(mockRecorder.recorded[0].AmountUSD).To(BeNumerically("~", 12.99, 1e-9))
				Expect(mockRecorder.recorded[0].Currency).To(Equal("EUR"))
			})
		})

		Context("when the intent requires additional action", func() {
			BeforeEach(func() {
				mockGateway.confirmIntent = &gateway.Intent{
					ID:           "pi_123",
					ClientSecret: "pi_123_secret",
					AmountMinor:  1299,
					Status:       gateway.StatusRequiresAction,
				}
			})

			It("should pass the continuation state through without persisting", func() {
				resp, err := service.ConfirmIntent(context.Background(), validConfirmRequest())
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.Status).To(Equal(gateway.StatusRequiresAction))
				Expect(resp.ClientSecret).To(Equal("pi_123_secret"))
				Expect(mockRecorder.recorded).To(BeEmpty())
			})
		})

		Context("when the provider declines the card", func() {
			It("should map an expired card", func() {
				mockGateway.confirmErr = &gateway.ProviderError{
					Code:        "expired_card",
					DeclineCode: "expired_card",
					Message:     "Your card has expired.",
				}

				_, err := service.ConfirmIntent(context.Background(), validConfirmRequest())
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(402))
				Expect(appErr.Code).To(Equal(errors.ErrCodeCardExpired))
				Expect(appErr.DeclineCode).To(Equal("expired_card"))
				Expect(mockRecorder.recorded).To(BeEmpty())
			})

			It("should map a failed intent left in payment_failed state", func() {
				mockGateway.confirmIntent = &gateway.Intent{
					ID:     "pi_123",
					Status: gateway.StatusPaymentFailed,
					LastError: &gateway.IntentError{
						Code:        "card_declined",
						DeclineCode: "insufficient_funds",
						Message:     "Your card has insufficient funds.",
					},
				}

				_, err := service.ConfirmIntent(context.Background(), validConfirmRequest())
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(errors.ErrCodeInsufficientFunds))
			})

			It("should default an unadorned failure to card_declined with generic_decline", func() {
				mockGateway.confirmIntent = &gateway.Intent{
					ID:     "pi_123",
					Status: gateway.StatusPaymentFailed,
				}

				_, err := service.ConfirmIntent(context.Background(), validConfirmRequest())
				appErr, ok := errors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(errors.ErrCodeCardDeclined))
				Expect(appErr.DeclineCode).To(Equal("generic_decline"))
			})
		})
	})
})
