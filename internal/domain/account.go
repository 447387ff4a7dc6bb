package domain

import "time"

// Account is a customer organisation.
type Account struct {
	ID             int64
	Name           string
	Phone          string
	Website        string
	Industry       string
	Description    string
	BillingAddress string
	OwnerID        *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Contact is a person, optionally linked to an account.
type Contact struct {
	ID             int64
	FirstName      string
	LastName       string
	AccountID      *int64
	Title          string
	Phone          string
	Email          string
	MailingAddress string
	OwnerID        *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName joins first and last name.
func (c *Contact) FullName() string {
	return joinName(c.FirstName, c.LastName)
}
