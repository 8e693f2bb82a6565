package domain

import "fmt"

// Error types for consistent error handling across the BFF.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an ERP backend call. The local
// draft is always left in its last-known-valid shape when this is returned.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a local validation failure (required field missing,
// no candidate selected). Raised before any network call.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrImportacao indicates the XML submission was rejected or unparseable by
// the backend. The draft is unchanged from before the import attempt.
type ErrImportacao struct {
	Err error
}

func (e *ErrImportacao) Error() string {
	return fmt.Sprintf("erro ao importar XML: %v", e.Err)
}

func (e *ErrImportacao) Unwrap() error {
	return e.Err
}

// ErrNotaIncompleta indicates a commit was attempted while the save gate is
// false. No backend call is made.
type ErrNotaIncompleta struct {
	Motivo string
}

func (e *ErrNotaIncompleta) Error() string {
	return fmt.Sprintf("nota incompleta: %s", e.Motivo)
}

// ErrConflict indicates a resource already exists (e.g. duplicate CNPJ).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
