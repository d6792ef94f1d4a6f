package domain

import "time"

// Checkout session states required before an entitlement may be issued.
// PaymentStatus models money captured; Status models the session lifecycle.
// Both must hold independently.
const (
	PaymentStatusPaid     = "paid"
	SessionStatusComplete = "complete"
)

// PaymentSession is a read-only projection of an upstream checkout session.
// The session itself is externally owned and never mutated here.
type PaymentSession struct {
	ID            string    `json:"id"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	AmountTotal   int64     `json:"amount_total"`
	Currency      string    `json:"currency"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	CreatedAt     time.Time `json:"created"`
}

// Settled reports whether payment was captured and the session finished.
func (s PaymentSession) Settled() bool {
	return s.PaymentStatus == PaymentStatusPaid && s.Status == SessionStatusComplete
}
