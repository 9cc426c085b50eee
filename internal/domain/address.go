package domain

import (
	"time"

	"github.com/google/uuid"
)

// AddressType distinguishes shipping from billing addresses
type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
)

// Address is a saved user address. At most one is default per (user, type).
type Address struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	UserID      uuid.UUID   `json:"user_id" db:"user_id"`
	AddressType AddressType `json:"address_type" db:"address_type"`
	FirstName   string      `json:"first_name" db:"first_name"`
	LastName    string      `json:"last_name" db:"last_name"`
	Company     string      `json:"company,omitempty" db:"company"`
	Address1    string      `json:"address1" db:"address1"`
	Address2    string      `json:"address2,omitempty" db:"address2"`
	City        string      `json:"city" db:"city"`
	State       string      `json:"state" db:"state"`
	ZipCode     string      `json:"zip_code" db:"zip_code"`
	Country     string      `json:"country" db:"country"`
	Phone       string      `json:"phone,omitempty" db:"phone"`
	IsDefault   bool        `json:"is_default" db:"is_default"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}
