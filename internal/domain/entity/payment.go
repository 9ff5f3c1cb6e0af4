package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatusCompleted is the one status value that triggers a balance
// adjustment. Comparison is case-insensitive; the stored value keeps the
// provider's original casing.
const StatusCompleted = "completed"

type Payment struct {
	id                uuid.UUID
	transactionID     string
	studentID         string
	amount            float64
	currency          string
	status            string
	paymentMethod     string
	merchantReference string
	message           string
	createdAt         time.Time
	updatedAt         time.Time
}

func NewPayment(
	transactionID, studentID string,
	amount float64,
	currency, status, paymentMethod, merchantReference, message string,
) *Payment {
	now := time.Now().UTC()
	return &Payment{
		id:                uuid.New(),
		transactionID:     transactionID,
		studentID:         studentID,
		amount:            amount,
		currency:          currency,
		status:            status,
		paymentMethod:     paymentMethod,
		merchantReference: merchantReference,
		message:           message,
		createdAt:         now,
		updatedAt:         now,
	}
}

func ReconstructPayment(
	id uuid.UUID,
	transactionID, studentID string,
	amount float64,
	currency, status, paymentMethod, merchantReference, message string,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:                id,
		transactionID:     transactionID,
		studentID:         studentID,
		amount:            amount,
		currency:          currency,
		status:            status,
		paymentMethod:     paymentMethod,
		merchantReference: merchantReference,
		message:           message,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (p *Payment) ID() uuid.UUID {
	return p.id
}

func (p *Payment) TransactionID() string {
	return p.transactionID
}

func (p *Payment) StudentID() string {
	return p.studentID
}

func (p *Payment) Amount() float64 {
	return p.amount
}

func (p *Payment) Currency() string {
	return p.currency
}

func (p *Payment) Status() string {
	return p.status
}

func (p *Payment) PaymentMethod() string {
	return p.paymentMethod
}

func (p *Payment) MerchantReference() string {
	return p.merchantReference
}

func (p *Payment) Message() string {
	return p.message
}

func (p *Payment) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Payment) UpdatedAt() time.Time {
	return p.updatedAt
}

// Completed reports whether this payment should be applied to the student's
// balance.
func (p *Payment) Completed() bool {
	return strings.EqualFold(p.status, StatusCompleted)
}
