package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Every typed error below
// matches exactly one of them with errors.Is.
var (
	// ErrNotFound indicates a referenced agency, student, request or
	// deliverable does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientFunds indicates a cost exceeds the paying balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrPolicyViolation indicates the game rules forbid the operation.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrCommitFailure indicates the store rejected the batch. Nothing was written.
	ErrCommitFailure = errors.New("commit failed")
)

// NotFoundError names the missing resource.
type NotFoundError struct {
	Kind string // "agency", "student", "request", "deliverable"
	ID   string
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InsufficientFundsError reports who could not pay and by how much.
type InsufficientFundsError struct {
	Payer string // student or agency id
	Need  int64
	Have  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s cannot pay %d (balance %d)", e.Payer, e.Need, e.Have)
}

// Is reports whether target is ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Rule identifies which game rule a PolicyViolationError broke.
type Rule string

const (
	RuleCapacityExceeded Rule = "capacity_exceeded"
	RuleNotUnlocked      Rule = "not_unlocked"
	RuleIneligibleTarget Rule = "ineligible_target"
	RuleIneligibleVoter  Rule = "ineligible_voter"
	RuleAlreadyResolved  Rule = "already_resolved"
	RuleDuplicate        Rule = "duplicate_request"
	RuleInvalidInput     Rule = "invalid_input"
	RuleUnknownOperation Rule = "unknown_operation"
)

// PolicyViolationError reports a rule the operation would break.
type PolicyViolationError struct {
	Rule   Rule
	Detail string
}

func violation(rule Rule, format string, args ...any) *PolicyViolationError {
	return &PolicyViolationError{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

// Is reports whether target is ErrPolicyViolation.
func (e *PolicyViolationError) Is(target error) bool {
	return target == ErrPolicyViolation
}

// CommitError wraps a store failure. The underlying error stays reachable so
// callers can tell a version conflict from an I/O failure.
type CommitError struct {
	Op  string
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s: commit failed: %v", e.Op, e.Err)
}

// Is reports whether target is ErrCommitFailure.
func (e *CommitError) Is(target error) bool {
	return target == ErrCommitFailure
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
