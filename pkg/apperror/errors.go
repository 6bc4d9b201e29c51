package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Category groups error codes into the failure taxonomy used by the lifecycles.
type Category string

const (
	CategoryValidation   Category = "VALIDATION"
	CategoryNotFound     Category = "NOT_FOUND"
	CategoryAuth         Category = "AUTH"
	CategoryConflict     Category = "CONFLICT"
	CategoryFunds        Category = "INSUFFICIENT_FUNDS"
	CategoryDependency   Category = "DEPENDENCY"
	CategoryCompensation Category = "COMPENSATION_FAILURE"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string   `json:"error_code"`
	Message    string   `json:"message"`
	HTTPStatus int      `json:"-"`
	Category   Category `json:"-"`
	Err        error    `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(category Category, code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Category:   category,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(category Category, code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Category:   category,
		Err:        err,
	}
}

// CategoryOf returns the category of err, or "" when err is not an AppError.
func CategoryOf(err error) Category {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return ""
}

// CodeOf returns the code of err, or "" when err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Validation (VAL) ----

// Validation returns a VAL_001 error carrying the given message.
func Validation(message string) *AppError {
	return New(CategoryValidation, "VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New(CategoryValidation, "VAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrUnsupportedCurrency(currency string) *AppError {
	return New(CategoryValidation, "VAL_003", fmt.Sprintf("Unsupported currency %q", currency), http.StatusBadRequest)
}

func ErrPayoutBelowMinimum(currency, minimum string) *AppError {
	return New(CategoryValidation, "VAL_004", fmt.Sprintf("Amount must be more than %s%s", currency, minimum), http.StatusBadRequest)
}

func ErrPayoutAboveMaximum(currency, maximum string) *AppError {
	return New(CategoryValidation, "VAL_005", fmt.Sprintf("Amount must be less than %s%s", currency, maximum), http.StatusBadRequest)
}

func ErrInvalidPagination() *AppError {
	return New(CategoryValidation, "VAL_006", "Page limit and offset must be positive numbers", http.StatusBadRequest)
}

func ErrPayloadTooLarge() *AppError {
	return New(CategoryValidation, "VAL_007", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Not found (NF) ----

func ErrNotFound(entity string) *AppError {
	return New(CategoryNotFound, "NF_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrVirtualAccountMissing() *AppError {
	return New(CategoryNotFound, "NF_002", "Merchant has no virtual account", http.StatusNotFound)
}

func ErrNoPaymentMethod(currency string) *AppError {
	return New(CategoryNotFound, "NF_003", fmt.Sprintf("No payment method available for %s", currency), http.StatusUnprocessableEntity)
}

// ---- Authentication (AUTH) ----

func ErrMissingCredentials() *AppError {
	return New(CategoryAuth, "AUTH_001", "Missing merchant credentials", http.StatusUnauthorized)
}

func ErrInvalidCredentials() *AppError {
	return New(CategoryAuth, "AUTH_002", "Invalid merchant credentials", http.StatusUnauthorized)
}

func ErrMerchantKeyInactive() *AppError {
	return New(CategoryAuth, "AUTH_003", "Merchant key is not active", http.StatusUnauthorized)
}

func ErrMerchantInactive() *AppError {
	return New(CategoryAuth, "AUTH_004", "Merchant is not active to collect payments. Kindly contact support", http.StatusForbidden)
}

func ErrMerchantSuspended() *AppError {
	return New(CategoryAuth, "AUTH_005", "Merchant is suspended. Kindly contact support", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New(CategoryAuth, "AUTH_006", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New(CategoryAuth, "AUTH_007", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New(CategoryAuth, "AUTH_008", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New(CategoryAuth, "AUTH_009", "Nonce has already been used", http.StatusForbidden)
}

func ErrInvalidStaffCredentials() *AppError {
	return New(CategoryAuth, "AUTH_010", "Invalid staff credentials", http.StatusUnauthorized)
}

// ---- Conflict (CONF) ----

func ErrAlreadySettled() *AppError {
	return New(CategoryConflict, "CONF_001", "Transaction has already been settled", http.StatusConflict)
}

func ErrAlreadyCaptured() *AppError {
	return New(CategoryConflict, "CONF_002", "Transaction has already been paid and awaits settlement", http.StatusConflict)
}

func ErrAmountMismatch() *AppError {
	return New(CategoryConflict, "CONF_003", "Amount does not match the initialized transaction", http.StatusConflict)
}

func ErrCurrencyMismatch() *AppError {
	return New(CategoryConflict, "CONF_004", "Currency does not match the initialized transaction", http.StatusConflict)
}

func ErrTypeMismatch() *AppError {
	return New(CategoryConflict, "CONF_005", "Transaction type does not allow this operation", http.StatusConflict)
}

func ErrCardMismatch() *AppError {
	return New(CategoryConflict, "CONF_006", "Card does not match the captured transaction", http.StatusConflict)
}

func ErrInvalidTransition(from, event string) *AppError {
	return New(CategoryConflict, "CONF_007", fmt.Sprintf("Transaction in state %s cannot %s", from, event), http.StatusConflict)
}

func ErrDuplicateMerchant() *AppError {
	return New(CategoryConflict, "CONF_008", "Merchant with this email already exists", http.StatusConflict)
}

// ---- Funds (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New(CategoryFunds, "PAY_001", "Insufficient balance. Kindly request a lower amount", http.StatusPaymentRequired)
}

// ---- Payment method rejections (PM) ----

func ErrPaymentMethodNotFound() *AppError {
	return New(CategoryValidation, "PM_001", "Payment method not found for this transaction type", http.StatusUnprocessableEntity)
}

func ErrPaymentMethodCurrency() *AppError {
	return New(CategoryValidation, "PM_002", "Payment method does not support this currency", http.StatusUnprocessableEntity)
}

func ErrPaymentMethodUnavailable() *AppError {
	return New(CategoryValidation, "PM_003", "Payment method is currently unavailable", http.StatusUnprocessableEntity)
}

func ErrPaymentMethodBelowMinimum() *AppError {
	return New(CategoryValidation, "PM_004", "Amount is below the payment method minimum", http.StatusUnprocessableEntity)
}

func ErrPaymentMethodAboveMaximum() *AppError {
	return New(CategoryValidation, "PM_005", "Amount is above the payment method maximum", http.StatusUnprocessableEntity)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CategoryValidation, "RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap(CategoryDependency, "SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrStoreTimeout(err error) *AppError {
	return Wrap(CategoryDependency, "SYS_002", "Store call timed out", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap(CategoryDependency, "SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// ErrCompensationFailed reports that rolling back a partially applied operation failed.
// The original failure is kept as the wrapped error.
func ErrCompensationFailed(original, rollback error) *AppError {
	return Wrap(CategoryCompensation, "SYS_009", "Operation failed and could not be rolled back. Kindly contact support",
		http.StatusInternalServerError, errors.Join(original, rollback))
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CategoryDependency, "SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
