package payment

import (
	errors "github.com/frahmantamala/film-payments/internal"
)

// declineRule matches a provider error code or decline code against the
// error code the API surfaces. Rules are checked in order; the first match
// wins.
type declineRule struct {
	errorCode   string
	declineCode string
	mapped      errors.ErrorCode
}

var declineRules = []declineRule{
	{errorCode: "expired_card", mapped: errors.ErrCodeCardExpired},
	{declineCode: "expired_card", mapped: errors.ErrCodeCardExpired},
	{errorCode: "insufficient_funds", mapped: errors.ErrCodeInsufficientFunds},
	{declineCode: "insufficient_funds", mapped: errors.ErrCodeInsufficientFunds},
	{errorCode: "incorrect_cvc", mapped: errors.ErrCodeIncorrectCVC},
	{declineCode: "incorrect_cvc", mapped: errors.ErrCodeIncorrectCVC},
}

// MapDecline translates a provider error/decline code pair into the
// service's card failure taxonomy. Unknown codes fall through to the
// generic card_declined.
func MapDecline(errorCode, declineCode string) errors.ErrorCode {
	for _, rule := range declineRules {
		if rule.errorCode != "" && rule.errorCode == errorCode {
			return rule.mapped
		}
		if rule.declineCode != "" && rule.declineCode == declineCode {
			return rule.mapped
		}
	}
	return errors.ErrCodeCardDeclined
}

// declineMessage picks a buyer-facing message for a mapped decline. The
// provider's own message is preferred when present.
func declineMessage(mapped errors.ErrorCode, providerMessage string) string {
	if providerMessage != "" {
		return providerMessage
	}
	switch mapped {
	case errors.ErrCodeCardExpired:
		return "Your card has expired. Please use a different card."
	case errors.ErrCodeInsufficientFunds:
		return "Your card has insufficient funds."
	case errors.ErrCodeIncorrectCVC:
		return "Your card's security code is incorrect."
	default:
		return "Your card was declined."
	}
}
