package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"-"`
	Details interface{} `json:"details,omitempty"`
	Cause   error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

// ErrInvalidState reports a command that does not apply to the lobby's
// current status (e.g. start on a finished lobby).
func ErrInvalidState(msg string) *AppError {
	return &AppError{Code: "INVALID_STATE", Message: msg, Status: 409}
}

func ErrLobbyFull() *AppError {
	return &AppError{Code: "LOBBY_FULL", Message: "no free slot available", Status: 409}
}

func ErrSlotTaken(team string, position int) *AppError {
	return &AppError{Code: "SLOT_TAKEN", Message: fmt.Sprintf("slot %s%d is already occupied", team, position), Status: 409}
}

func ErrSlotNotFound(team string, position int) *AppError {
	return &AppError{Code: "SLOT_NOT_FOUND", Message: fmt.Sprintf("no slot %s%d in this lobby", team, position), Status: 404}
}

func ErrBanned() *AppError {
	return &AppError{Code: "BANNED", Message: "user is banned from this lobby", Status: 403}
}

func ErrAlreadyPresent() *AppError {
	return &AppError{Code: "ALREADY_PRESENT", Message: "user already holds this slot", Status: 409}
}

func ErrNotInLobby() *AppError {
	return &AppError{Code: "NOT_IN_LOBBY", Message: "user is not in this lobby", Status: 404}
}

func ErrNotInSlot() *AppError {
	return &AppError{Code: "NOT_IN_SLOT", Message: "user does not hold a slot", Status: 404}
}

func ErrTargetNotInSlot() *AppError {
	return &AppError{Code: "TARGET_NOT_IN_SLOT", Message: "target user does not hold a slot", Status: 404}
}

func ErrInsufficientFunds() *AppError {
	return &AppError{Code: "INSUFFICIENT_FUNDS", Message: "insufficient balance", Status: 400}
}

func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: msg, Status: 429}
}

func ErrWrongPassword() *AppError {
	return &AppError{Code: "WRONG_PASSWORD", Message: "lobby password does not match", Status: 403}
}

// ErrStorage wraps a persistence failure as a transient condition the caller
// should retry. A state transition is never silently dropped.
func ErrStorage(msg string, cause error) *AppError {
	return &AppError{Code: "STORAGE_ERROR", Message: msg, Status: 503, Cause: cause}
}

// ErrSettlementPartial reports a settlement in which some transfers applied
// and others did not. Details carries the unresolved transfers; applied
// transfers are not rolled back.
func ErrSettlementPartial(unresolved []Transfer, cause error) *AppError {
	return &AppError{
		Code:    "SETTLEMENT_PARTIAL_FAILURE",
		Message: fmt.Sprintf("%d transfer(s) unresolved", len(unresolved)),
		Status:  500,
		Details: unresolved,
		Cause:   cause,
	}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}
