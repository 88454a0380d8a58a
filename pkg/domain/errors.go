package domain

import "fmt"

// AuthorizationError reports a caller lacking the role, custody, or standing
// required for an operation. Never retriable without a different caller.
type AuthorizationError struct {
	Actor       string
	Requirement string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("actor %s not authorized: %s", e.Actor, e.Requirement)
}

// InvariantError reports invalid input that must be corrected and resubmitted.
type InvariantError struct {
	Field  string
	Reason string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PreconditionError reports an entity in the wrong state for the requested
// transition. The caller must re-read current state before retrying.
type PreconditionError struct {
	Entity EntityType
	ID     string
	Reason string
}

func (e PreconditionError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
}

// DependencyError reports a missing external collaborator, distinct from an
// authorization failure so operators know to configure rather than re-permission.
type DependencyError struct {
	Dependency string
}

func (e DependencyError) Error() string {
	return fmt.Sprintf("%s not configured", e.Dependency)
}

// NotFoundError is returned when an entity id has never been created.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
