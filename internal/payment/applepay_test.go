package payment_test

import (
	"context"
	"strings"

	"github.com/frahmantamala/film-payments/internal"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/gateway"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/purchase"
	"github.com/frahmantamala/film-payments/internal/payment"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ApplePay Service", func() {
	var (
		mockGateway  *MockGateway
		mockRecorder *MockRecorder
		service      *payment.ApplePayService
	)

	config := internal.ApplePayConfig{
		MerchantID:  "merchant.com.example.films",
		DisplayName: "Film Store",
		Domain:      "films.example.com",
	}

	newService := func(cfg internal.ApplePayConfig, configured bool) *payment.ApplePayService {
		return payment.NewApplePayService(mockGateway, mockRecorder, cfg, "https://films.example.com", configured, testLogger())
	}

	BeforeEach(func() {
		mockGateway = &MockGateway{}
		mockRecorder = &MockRecorder{}
		service = newService(config, true)
	})

	tokenRequest := func() *payment.ApplePayTokenRequest {
		return &payment.ApplePayTokenRequest{
			Payment: &payment.ApplePayPayment{
				Token: &payment.ApplePayToken{PaymentData: "tok_applepay"},
			},
			Amount: 12.99,
			FilmID: "film_42",
			UserID: "user_7",
		}
	}

	Describe("ValidateMerchant", func() {
		It("should reject a missing validation URL", func() {
			_, err := service.ValidateMerchant(context.Background(), &payment.ApplePayValidateRequest{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
		})

		It("should register the domain and return a session in production", func() {
			session, err := service.ValidateMerchant(context.Background(), &payment.ApplePayValidateRequest{
				ValidationURL: "https://apple-pay-gateway.apple.com/paymentservices/startSession",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(mockGateway.domains).To(ConsistOf("films.example.com"))
			Expect(session.MerchantIdentifier).To(Equal("merchant.com.example.films"))
			Expect(session.DomainName).To(Equal("films.example.com"))
			Expect(session.DisplayName).To(Equal("Film Store"))
		})

		Context("in dev mode", func() {
			BeforeEach(func() {
				devConfig := config
				devConfig.DevMode = true
				service = newService(devConfig, false)
			})

			It("should return a mock session without touching the provider", func() {
				session, err := service.ValidateMerchant(context.Background(), &payment.ApplePayValidateRequest{
					ValidationURL: "https://apple-pay-gateway.apple.com/paymentservices/startSession",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(session.MerchantSessionIdentifier).To(HavePrefix("mock_session_"))
				Expect(mockGateway.domains).To(BeEmpty())
			})
		})
	})

	Describe("ProcessToken", func() {
		It("should reject a request without a wallet token", func() {
			req := tokenRequest()
			req.Payment = nil

			_, err := service.ProcessToken(context.Background(), req)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
		})

		It("should create and confirm a USD intent from the token", func() {
			mockGateway.createIntent = &gateway.Intent{
				ID:          "pi_wallet",
				AmountMinor: 1299,
				Currency:    "usd",
				Status:      gateway.StatusSucceeded,
			}

			result, err := service.ProcessToken(context.Background(), tokenRequest())
			Expect(err).NotTo(HaveOccurred())

			Expect(mockGateway.createParams.CardToken).To(Equal("tok_applepay"))
			Expect(mockGateway.createParams.Confirm).To(BeTrue())
			Expect(mockGateway.createParams.Currency).To(Equal("usd"))
			Expect(mockGateway.createParams.AmountMinor).To(Equal(int64(1299)))

			Expect(result.Success).To(BeTrue())
			Expect(result.PaymentID).To(Equal("pi_wallet"))
			Expect(mockRecorder.recorded).To(HaveLen(1))
			Expect(mockRecorder.recorded[0].PaymentMethod).To(Equal(purchase.MethodApplePay))
		})

		It("should map a declined wallet charge", func() {
			mockGateway.createErr = &gateway.ProviderError{
				Code:        "card_declined",
				DeclineCode: "insufficient_funds",
			}

			_, err := service.ProcessToken(context.Background(), tokenRequest())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(402))
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientFunds))
		})

		Context("in dev mode", func() {
			BeforeEach(func() {
				devConfig := config
				devConfig.DevMode = true
				service = newService(devConfig, false)
			})

			It("should synthesize a successful payment with a local id", func() {
				result, err := service.ProcessToken(context.Background(), tokenRequest())
				Expect(err).NotTo(HaveOccurred())

				Expect(result.Success).To(BeTrue())
				Expect(result.PaymentID).To(HavePrefix("applepay_dev_"))
				Expect(mockGateway.createParams).To(BeNil())
				Expect(mockRecorder.recorded).To(HaveLen(1))
			})

			It("should generate distinct ids per payment", func() {
				first, _ := service.ProcessToken(context.Background(), tokenRequest())
				second, _ := service.ProcessToken(context.Background(), tokenRequest())
				Expect(first.PaymentID).NotTo(Equal(second.PaymentID))
			})
		})

		Context("without dev mode and without a credential", func() {
			BeforeEach(func() {
				service = newService(config, false)
			})

			It("should fail with a configuration error, never inferring dev mode", func() {
				_, err := service.ProcessToken(context.Background(), tokenRequest())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(500))
				Expect(appErr.Code).To(Equal(internal.ErrCodeProviderNotConfigured))
			})
		})
	})

	Describe("ProcessStripe", func() {
		stripeRequest := func() *payment.ApplePayStripeRequest {
			return &payment.ApplePayStripeRequest{
				PaymentMethodID: "pm_applepay",
				Amount:          11.69,
				OriginalAmount:  12.99,
				Currency:        "EUR",
				FilmID:          "film_42",
				UserID:          "user_7",
			}
		}

		It("should charge in the buyer's currency and record the USD face amount", func() {
			mockGateway.createIntent = &gateway.Intent{
				ID:          "pi_pr",
				AmountMinor: 1169,
				Currency:    "eur",
				Status:      gateway.StatusSucceeded,
			}

			result, err := service.ProcessStripe(context.Background(), stripeRequest())
			Expect(err).NotTo(HaveOccurred())

			Expect(mockGateway.createParams.PaymentMethodID).To(Equal("pm_applepay"))
			Expect(mockGateway.createParams.Currency).To(Equal("eur"))
			Expect(mockGateway.createParams.AmountMinor).To(Equal(int64(1169)))

			Expect(result.Success).To(BeTrue())
			Expect(mockRecorder.recorded[0].AmountUSD).To(BeNumerically("~", 12.99, 1e-9))
			Expect(mockRecorder.recorded[0].PaymentMethod).To(Equal(purchase.MethodApplePayStripe))
		})

		It("should build the return URL from the server base URL", func() {
			mockGateway.createIntent = &gateway.Intent{ID: "pi_pr", Status: gateway.StatusSucceeded}

			_, err := service.ProcessStripe(context.Background(), stripeRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(mockGateway.createParams.ReturnURL).To(SatisfyAll(
				HavePrefix("https://films.example.com/payment/success"),
				ContainSubstring("source=apple_pay"),
				ContainSubstring("filmId=film_42"),
			))
		})

		It("should pass a requires_action intent back for client-side step-up", func() {
			mockGateway.createIntent = &gateway.Intent{
				ID:           "pi_pr",
				ClientSecret: "pi_pr_secret",
				Status:       gateway.StatusRequiresAction,
			}

			result, err := service.ProcessStripe(context.Background(), stripeRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeFalse())
			Expect(result.RequiresAction).To(BeTrue())
			Expect(result.ClientSecret).To(Equal("pi_pr_secret"))
			Expect(mockRecorder.recorded).To(BeEmpty())
		})
	})
})

var _ = Describe("ApplePay request validation", func() {
	It("should treat an empty paymentData as no token", func() {
		req := &payment.ApplePayTokenRequest{
			Payment: &payment.ApplePayPayment{Token: &payment.ApplePayToken{PaymentData: strings.TrimSpace("")}},
			Amount:  1,
			FilmID:  "f",
			UserID:  "u",
		}
		Expect(req.HasToken()).To(BeFalse())
	})
})
