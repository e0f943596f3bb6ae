package checkout

import (
	"regexp"
	"slices"
	"strings"

	"github.com/shopstack/checkout/internal/domain"
)

// SupportedBanks is the fixed set selectable for netbanking.
var SupportedBanks = []string{
	"State Bank of India",
	"HDFC Bank",
	"ICICI Bank",
	"Axis Bank",
	"Kotak Mahindra Bank",
	"Punjab National Bank",
}

var (
	upiPattern    = regexp.MustCompile(`^[\w.-]+@[\w.-]+$`)
	cardPattern   = regexp.MustCompile(`^\d{16}$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvPattern    = regexp.MustCompile(`^\d{3}$`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// PaymentInput carries the raw instrument fields for the selected method.
// Only the fields belonging to Method are consulted.
type PaymentInput struct {
	Method     domain.PaymentMethod `json:"method"`
	UPIID      string               `json:"upi_id,omitempty"`
	CardNumber string               `json:"card_number,omitempty"`
	CardExpiry string               `json:"card_expiry,omitempty"`
	CardCVV    string               `json:"card_cvv,omitempty"`
	Bank       string               `json:"bank,omitempty"`
}

// ValidatePayment checks the method-specific fields in a fixed order and
// returns the first violation. Cash on delivery requires no instrument
// fields; its fixed advance amount is disclosed in the response instead.
func ValidatePayment(in PaymentInput) error {
	switch in.Method {
	case domain.PaymentMethodUPI:
		if !upiPattern.MatchString(in.UPIID) {
			return &ValidationError{Field: "upi_id", Message: "Invalid UPI ID format"}
		}
	case domain.PaymentMethodCard:
		number := spacePattern.ReplaceAllString(in.CardNumber, "")
		if !cardPattern.MatchString(number) {
			return &ValidationError{Field: "card_number", Message: "Invalid card number"}
		}
		if !expiryPattern.MatchString(strings.TrimSpace(in.CardExpiry)) {
			return &ValidationError{Field: "card_expiry", Message: "Invalid expiry date"}
		}
		if !cvvPattern.MatchString(in.CardCVV) {
			return &ValidationError{Field: "card_cvv", Message: "Invalid CVV"}
		}
	case domain.PaymentMethodNetbanking:
		if !slices.Contains(SupportedBanks, in.Bank) {
			return &ValidationError{Field: "bank", Message: "Please select a bank"}
		}
	case domain.PaymentMethodCOD:
	default:
		return &ValidationError{Field: "method", Message: "Please select a payment method"}
	}
	return nil
}
