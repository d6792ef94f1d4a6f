package domain

import "time"

// EntitlementCode is a persisted single-use access code. The store generates
// Code on insert; records are never updated or deleted by this service.
//
// ExpiresAt is nil exactly when the entitlement is permanent. For trials it
// is set to creation time plus seven calendar days.
type EntitlementCode struct {
	Code      string     `bson:"code" json:"code"`
	Platform  string     `bson:"platform,omitempty" json:"platform,omitempty"`
	ExpiresAt *time.Time `bson:"expired_at" json:"expired_at"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}
