package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRecordKind is returned when a record reference names an unknown entity kind.
var ErrInvalidRecordKind = errors.New("invalid record kind")

// ErrInvalidRecordID is returned when a record reference carries a non-positive id.
var ErrInvalidRecordID = errors.New("invalid record id")

// RecordKind enumerates the entity kinds an activity or recent record may point at.
type RecordKind string

const (
	RecordKindAccount     RecordKind = "account"
	RecordKindContact     RecordKind = "contact"
	RecordKindLead        RecordKind = "lead"
	RecordKindOpportunity RecordKind = "opportunity"
	RecordKindCase        RecordKind = "case"
)

var recordKinds = map[RecordKind]string{
	RecordKindAccount:     "accounts",
	RecordKindContact:     "contacts",
	RecordKindLead:        "leads",
	RecordKindOpportunity: "opportunities",
	RecordKindCase:        "cases",
}

// ParseRecordKind validates a raw kind string.
func ParseRecordKind(raw string) (RecordKind, error) {
	kind := RecordKind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := recordKinds[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecordKind, raw)
	}
	return kind, nil
}

// Valid reports whether the kind is known.
func (k RecordKind) Valid() bool {
	_, ok := recordKinds[k]
	return ok
}

// Table returns the table backing the kind.
func (k RecordKind) Table() string {
	return recordKinds[k]
}

// RecordRef is a typed pointer to one CRM record.
type RecordRef struct {
	Kind RecordKind
	ID   int64
}

// NewRecordRef builds a reference, rejecting unknown kinds and non-positive ids.
func NewRecordRef(kind RecordKind, id int64) (RecordRef, error) {
	if !kind.Valid() {
		return RecordRef{}, fmt.Errorf("%w: %q", ErrInvalidRecordKind, kind)
	}
	if id <= 0 {
		return RecordRef{}, fmt.Errorf("%w: %d", ErrInvalidRecordID, id)
	}
	return RecordRef{Kind: kind, ID: id}, nil
}

// LeadRef references a lead.
func LeadRef(id int64) RecordRef { return RecordRef{Kind: RecordKindLead, ID: id} }

// CaseRef references a case.
func CaseRef(id int64) RecordRef { return RecordRef{Kind: RecordKindCase, ID: id} }

func (r RecordRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}
