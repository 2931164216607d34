package core

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// OperationResult represents the outcome of an audited operation
type OperationResult string

const (
	// ResultSuccess indicates the operation completed normally
	ResultSuccess OperationResult = "success"
	// ResultFailure indicates the operation failed
	ResultFailure OperationResult = "failure"
	// ResultError indicates the operation aborted with an error
	ResultError OperationResult = "error"
	// ResultUnauthorized indicates the operation was denied
	ResultUnauthorized OperationResult = "unauthorized"
)

// String returns the string representation
func (r OperationResult) String() string {
	return string(r)
}

// IsValid checks if the result is valid
func (r OperationResult) IsValid() bool {
	switch r {
	case ResultSuccess, ResultFailure, ResultError, ResultUnauthorized:
		return true
	default:
		return false
	}
}

// TriggersSeal reports whether this result forces an immediate block seal.
// Denied and failed operations are sealed right away so their evidence is
// signed before anything else happens on the chain.
func (r OperationResult) TriggersSeal() bool {
	return r == ResultUnauthorized || r == ResultFailure
}

// Priority represents the executive handling priority of a record
type Priority string

const (
	PriorityRoutine   Priority = "routine"
	PriorityImportant Priority = "important"
	PriorityCritical  Priority = "critical"
	PriorityEmergency Priority = "emergency"
)

// TriggersSeal reports whether this priority forces an immediate block seal.
func (p Priority) TriggersSeal() bool {
	return p == PriorityCritical || p == PriorityEmergency
}

// Classification represents the data classification of a record
type Classification string

const (
	ClassUnclassified Classification = "unclassified"
	ClassConfidential Classification = "confidential"
	ClassSecret       Classification = "secret"
	ClassTopSecret    Classification = "top-secret"
)

// ProtectionLevel represents the executive protection tier
type ProtectionLevel string

const (
	ProtectionStandard ProtectionLevel = "standard"
	ProtectionEnhanced ProtectionLevel = "enhanced"
	ProtectionMaximum  ProtectionLevel = "maximum"
)

// AuditRecord is the immutable input contract supplied by a producer.
// The engine never modifies a record after ingestion; its canonical
// serialization is the preimage of the entry content hash.
type AuditRecord struct {
	OperationID string          `json:"operation_id" validate:"required"`
	Timestamp   time.Time       `json:"timestamp" validate:"required"`
	Operation   string          `json:"operation"`
	Result      OperationResult `json:"result" validate:"required"`
	KeyID       string          `json:"key_id,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	SourceIP    string          `json:"source_ip,omitempty" validate:"omitempty,ip"`
	UserAgent   string          `json:"user_agent,omitempty"`
}

// ExecutiveMetadata carries optional priority and classification tags.
// It influences seal urgency and compliance tagging only.
type ExecutiveMetadata struct {
	ExecutiveID     string          `json:"executive_id"`
	ProtectionLevel ProtectionLevel `json:"protection_level"`
	Classification  Classification  `json:"classification"`
	Priority        Priority        `json:"priority"`
	RetentionYears  int             `json:"retention_years"`
}

var recordValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateRecord checks that a record satisfies the input contract. It
// returns an error wrapping ErrValidation so callers can match with
// errors.Is.
func ValidateRecord(record AuditRecord) error {
	if record.OperationID == "" {
		return fmt.Errorf("%w: missing operation id", ErrValidation)
	}
	if record.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrValidation)
	}
	if !record.Result.IsValid() {
		return fmt.Errorf("%w: invalid result %q", ErrValidation, record.Result)
	}
	if err := recordValidator.Struct(record); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// CanonicalRecord returns the deterministic serialization of a record used
// as the content-hash preimage. Fields appear in a fixed order so the same
// record always hashes to the same value regardless of how it was decoded.
func CanonicalRecord(record AuditRecord) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		record.OperationID,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.Operation,
		record.Result,
		record.KeyID,
		record.UserID,
		record.SourceIP,
		record.UserAgent,
	)
}
