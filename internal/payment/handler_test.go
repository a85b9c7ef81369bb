package payment_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/film-payments/internal"
	"github.com/frahmantamala/film-payments/internal/core/datamodel/gateway"
	"github.com/frahmantamala/film-payments/internal/payment"
	"github.com/frahmantamala/film-payments/internal/paypalgateway"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Payment Handler", func() {
	var (
		mockGateway  *MockGateway
		mockRecorder *MockRecorder
		handler      *payment.Handler
	)

	BeforeEach(func() {
		mockGateway = &MockGateway{}
		mockRecorder = &MockRecorder{}
		logger := testLogger()

		service := payment.NewService(mockGateway, mockRecorder, &MockRates{}, nil, true, logger)
		applePay := payment.NewApplePayService(mockGateway, mockRecorder, applePayTestConfig(), "https://films.example.com", true, logger)
		paypal := payment.NewPayPalService(paypalgateway.NewClient(paypalgateway.Config{}, logger), "https://films.example.com", logger)

		handler = payment.NewHandler(service, applePay, paypal, logger)
	})

	post := func(handlerFunc http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
		payload, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handlerFunc(rec, req)
		return rec
	}

	Describe("ConfirmPayment", func() {
		confirmBody := map[string]interface{}{
			"payment_intent_id": "pi_123",
			"payment_method_id": "pm_456",
			"amount":            12.99,
			"filmId":            "film_42",
			"userId":            "user_7",
		}

		It("should answer 402 with the decline taxonomy for an expired card", func() {
			mockGateway.confirmErr = &gateway.ProviderError{
				Code:        "expired_card",
				DeclineCode: "expired_card",
				Message:     "Your card has expired.",
			}

			rec := post(handler.ConfirmPayment, confirmBody)
			Expect(rec.Code).To(Equal(http.StatusPaymentRequired))

			var body struct {
				Error       string `json:"error"`
				ErrorCode   string `json:"errorCode"`
				Message     string `json:"message"`
				DeclineCode string `json:"decline_code"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Error).To(Equal("payment_failed"))
			Expect(body.ErrorCode).To(Equal("card_expired"))
			Expect(body.DeclineCode).To(Equal("expired_card"))
			Expect(body.Message).NotTo(BeEmpty())
		})

		It("should answer 200 with card details on success", func() {
			mockGateway.confirmIntent = &gateway.Intent{
				ID:          "pi_123",
				AmountMinor: 1299,
				Currency:    "usd",
				Status:      gateway.StatusSucceeded,
				Card:        gateway.CardDetails{Brand: "visa", Last4: "4242"},
			}

			rec := post(handler.ConfirmPayment, confirmBody)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body payment.ConfirmResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.ID).To(Equal("pi_123"))
			Expect(body.PaymentMethod.Card.Last4).To(Equal("4242"))
			Expect(body.Metadata.FilmID).To(Equal("film_42"))
			Expect(body.Purchase).NotTo(BeNil())
		})

		It("should answer 400 for a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
			rec := httptest.NewRecorder()
			handler.ConfirmPayment(rec, req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should answer 400 when required fields are missing", func() {
			rec := post(handler.ConfirmPayment, map[string]interface{}{
				"payment_intent_id": "pi_123",
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("CreateIntent", func() {
		It("should answer 200 with the client secret", func() {
			mockGateway.createIntent = &gateway.Intent{
				ID:           "pi_123",
				ClientSecret: "pi_123_secret",
				AmountMinor:  1299,
				Currency:     "usd",
				Status:       gateway.StatusRequiresPaymentMethod,
			}

			rec := post(handler.CreateIntent, map[string]interface{}{
				"amount": 12.99,
				"filmId": "film_42",
				"userId": "user_7",
				"paymentData": map[string]string{
					"cardholderName": "Ada Lovelace",
					"email":          "ada@example.com",
				},
			})
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body payment.CreateIntentResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.ClientSecret).To(Equal("pi_123_secret"))
			Expect(body.Currency).To(Equal("USD"))
		})
	})

	Describe("CreatePayPalOrder", func() {
		It("should answer 500 when PayPal is not configured", func() {
			rec := post(handler.CreatePayPalOrder, map[string]interface{}{
				"amount": 12.99,
				"filmId": "film_42",
				"userId": "user_7",
			})
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})

func applePayTestConfig() internal.ApplePayConfig {
	return internal.ApplePayConfig{
		MerchantID:  "merchant.com.example.films",
		DisplayName: "Film Store",
		Domain:      "films.example.com",
	}
}
