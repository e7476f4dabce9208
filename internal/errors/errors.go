// Package errors provides custom error types for the Kasku API.
// All service-layer errors should use AppError so handlers can map them to
// consistent responses without leaking internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError carrying the same code, so callers
// can match sentinels after Wrap or WithMessage produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "You are not a member of this account", StatusCode: http.StatusForbidden}
	ErrOwnerRequired      = &AppError{Code: "OWNER_REQUIRED", Message: "Only the account owner can do this", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Account errors.
var (
	ErrAccountNotFound = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrSlugTaken       = &AppError{Code: "SLUG_TAKEN", Message: "This slug is already in use", StatusCode: http.StatusConflict}
	ErrInvalidSlug     = &AppError{Code: "INVALID_SLUG", Message: "Slug must be 3-48 characters of lowercase letters, digits and dashes", StatusCode: http.StatusBadRequest}
	ErrNoDefault       = &AppError{Code: "NO_DEFAULT_ACCOUNT", Message: "No default account set", StatusCode: http.StatusNotFound}
)

// Member errors.
var (
	ErrMemberNotFound    = &AppError{Code: "MEMBER_NOT_FOUND", Message: "Member not found", StatusCode: http.StatusNotFound}
	ErrMemberExists      = &AppError{Code: "MEMBER_EXISTS", Message: "This email is already a member of the account", StatusCode: http.StatusConflict}
	ErrCannotRemoveOwner = &AppError{Code: "CANNOT_REMOVE_OWNER", Message: "The owner cannot be removed; transfer ownership or leave the account instead", StatusCode: http.StatusBadRequest}
	ErrCannotRemoveSelf  = &AppError{Code: "CANNOT_REMOVE_SELF", Message: "Use the leave action to remove yourself", StatusCode: http.StatusBadRequest}
	ErrAlreadyOwner      = &AppError{Code: "ALREADY_OWNER", Message: "Member is already the owner", StatusCode: http.StatusBadRequest}
)

// Wallet errors.
var (
	ErrWalletNotFound      = &AppError{Code: "WALLET_NOT_FOUND", Message: "Wallet not found", StatusCode: http.StatusNotFound}
	ErrInsufficientBalance = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "Insufficient wallet balance", StatusCode: http.StatusBadRequest}
	ErrSameWalletTransfer  = &AppError{Code: "SAME_WALLET_TRANSFER", Message: "Cannot transfer to the same wallet", StatusCode: http.StatusBadRequest}
)

// Record errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrBudgetNotFound      = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrInstallmentNotFound = &AppError{Code: "INSTALLMENT_NOT_FOUND", Message: "Installment not found", StatusCode: http.StatusNotFound}
	ErrInstallmentPaid     = &AppError{Code: "INSTALLMENT_PAID", Message: "Installment is already paid off", StatusCode: http.StatusBadRequest}
	ErrStatCardNotFound    = &AppError{Code: "STAT_CARD_NOT_FOUND", Message: "Stat card not found", StatusCode: http.StatusNotFound}
)
