package users

import "time"

// UserType enumerates the kinds of parties a user record can represent.
type UserType string

const (
	TypeAdmin    UserType = "ADMIN"
	TypeSupplier UserType = "SUPPLIER"
	TypeClient   UserType = "CLIENT"
)

// User represents a client, supplier or admin party. Email is unique; the
// username is optional but unique when present.
type User struct {
	ID               int64      `json:"id"`
	AdminID          int64      `json:"admin_id,omitempty"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Email            string     `json:"email"`
	CompanyName      string     `json:"company_name,omitempty"`
	Username         string     `json:"username,omitempty"`
	PasswordHash     string     `json:"-"`
	Address          string     `json:"address,omitempty"`
	Postcode         string     `json:"postcode,omitempty"`
	ShippingAddress  string     `json:"shipping_address,omitempty"`
	ShippingPostcode string     `json:"shipping_postcode,omitempty"`
	PhoneOffice      string     `json:"phone_office,omitempty"`
	PhoneHome        string     `json:"phone_home,omitempty"`
	Mobile           string     `json:"mobile,omitempty"`
	VATNumber        string     `json:"vat_number,omitempty"`
	Fax              string     `json:"fax,omitempty"`
	Type             UserType   `json:"user_type"`
	IsActive         bool       `json:"is_active"`
	LoginTimestamp   *time.Time `json:"login_timestamp,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// FullName joins first and last name for display.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// CreateUserInput for creating users.
type CreateUserInput struct {
	AdminID          int64
	FirstName        string
	LastName         string
	Email            string
	CompanyName      string
	Username         string
	Password         string
	Address          string
	Postcode         string
	ShippingAddress  string
	ShippingPostcode string
	PhoneOffice      string
	PhoneHome        string
	Mobile           string
	VATNumber        string
	Fax              string
	Type             UserType
}

// UpdateUserInput for updating user profile fields. Password and type changes
// go through dedicated operations.
type UpdateUserInput struct {
	FirstName        string
	LastName         string
	Email            string
	CompanyName      string
	Username         string
	Address          string
	Postcode         string
	ShippingAddress  string
	ShippingPostcode string
	PhoneOffice      string
	PhoneHome        string
	Mobile           string
	VATNumber        string
	Fax              string
}

// ListFilters narrows user listings.
type ListFilters struct {
	Type     UserType
	IsActive *bool
	Search   string
	Page     int
	PerPage  int
}
