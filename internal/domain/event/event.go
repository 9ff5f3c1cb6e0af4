// Package event turns raw webhook payloads into one canonical payment event.
// Providers disagree on field names and casing; every alias is resolved here
// so the rest of the system only ever sees the canonical set. The package
// performs no I/O.
package event

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	defaultStatus   = "completed"
	defaultCurrency = "KES"

	// DefaultPaymentMethod is the single code-level fallback for events that
	// carry no payment method. The persisted column is additionally declared
	// NOT NULL DEFAULT 'UNKNOWN' so rows written by out-of-band tooling can
	// never be null either.
	DefaultPaymentMethod = "mobile_money"
)

// Canonical is a normalized payment event, ready for ingestion.
type Canonical struct {
	TransactionID     string
	StudentID         string
	Amount            float64
	Currency          string
	Status            string
	PaymentMethod     string
	MerchantReference string
	Message           string
}

// ValidationError lists each offending field with the reason it failed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var (
	transactionIDAliases     = []string{"transaction_id", "transactionId"}
	studentIDAliases         = []string{"student_id", "studentId", "customer_id", "customerId"}
	statusAliases            = []string{"status", "payment_status"}
	paymentMethodAliases     = []string{"payment_method", "method"}
	merchantReferenceAliases = []string{"merchant_reference", "merchantReference"}
	amountAliases            = []string{"amount"}
	currencyAliases          = []string{"currency"}
	messageAliases           = []string{"message"}
)

// Normalize resolves aliases, applies defaults and validates the mandatory
// fields of a decoded webhook payload.
func Normalize(payload map[string]any) (*Canonical, error) {
	transactionID := firstString(payload, transactionIDAliases)
	studentID := firstString(payload, studentIDAliases)
	amountRaw, amountPresent := firstValue(payload, amountAliases)

	fields := map[string]string{}
	if transactionID == "" {
		fields["transactionId"] = "Transaction ID is required"
	}
	if studentID == "" {
		fields["studentId"] = "Student ID is required"
	}
	if !amountPresent {
		fields["amount"] = "Amount is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	amount, err := parseAmount(amountRaw)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{
			"amount": "Amount must be a valid number",
		}}
	}

	status := firstString(payload, statusAliases)
	if status == "" {
		status = defaultStatus
	}

	paymentMethod := firstString(payload, paymentMethodAliases)
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	currency := firstString(payload, currencyAliases)
	if currency == "" {
		currency = defaultCurrency
	}

	return &Canonical{
		TransactionID:     transactionID,
		StudentID:         studentID,
		Amount:            amount,
		Currency:          currency,
		Status:            status,
		PaymentMethod:     paymentMethod,
		MerchantReference: firstString(payload, merchantReferenceAliases),
		Message:           firstString(payload, messageAliases),
	}, nil
}

func firstValue(payload map[string]any, aliases []string) (any, bool) {
	for _, key := range aliases {
		if v, ok := payload[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(payload map[string]any, aliases []string) string {
	v, ok := firstValue(payload, aliases)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func parseAmount(v any) (float64, error) {
	var amount float64
	switch n := v.(type) {
	case float64:
		amount = n
	case int:
		amount = float64(n)
	case int64:
		amount = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		amount = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, err
		}
		amount = f
	default:
		return 0, fmt.Errorf("unsupported amount type %T", v)
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount is not finite")
	}
	return amount, nil
}
