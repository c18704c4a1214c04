// Package domain holds the customer profile written at the end of signup.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Address is the customer's residential address, autofilled from a postal code
// lookup and then confirmed or amended by the customer.
type Address struct {
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	Region     string
	PostalCode string
}

// Profile is the durable customer record. ID is assigned at insert time;
// IdentityID links the profile to its credential-holding user in the identity
// provider.
type Profile struct {
	ID            uuid.UUID
	IdentityID    string
	Email         string
	Phone         string
	FullName      string
	TaxID         string
	BirthDate     time.Time
	Address       Address
	PhoneVerified bool
	EmailVerified bool
	CreatedAt     time.Time
}
