package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New(CategoryFunds, "PAY_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[PAY_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap(CategoryDependency, "SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(CategoryDependency, "SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New(CategoryFunds, "PAY_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryConflict, CategoryOf(ErrAlreadySettled()))
	assert.Equal(t, CategoryFunds, CategoryOf(fmt.Errorf("outer: %w", ErrInsufficientFunds())))
	assert.Equal(t, Category(""), CategoryOf(errors.New("plain")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "CONF_003", CodeOf(ErrAmountMismatch()))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		category   Category
		httpStatus int
	}{
		{"Validation", Validation("bad"), "VAL_001", CategoryValidation, 400},
		{"InvalidAmount", ErrInvalidAmount(), "VAL_002", CategoryValidation, 400},
		{"PayoutBelowMinimum", ErrPayoutBelowMinimum("NGN", "1000.00"), "VAL_004", CategoryValidation, 400},
		{"PayoutAboveMaximum", ErrPayoutAboveMaximum("USD", "10000.00"), "VAL_005", CategoryValidation, 400},
		{"NotFound", ErrNotFound("Transaction"), "NF_001", CategoryNotFound, 404},
		{"VirtualAccountMissing", ErrVirtualAccountMissing(), "NF_002", CategoryNotFound, 404},
		{"NoPaymentMethod", ErrNoPaymentMethod("USD"), "NF_003", CategoryNotFound, 422},
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_002", CategoryAuth, 401},
		{"MerchantSuspended", ErrMerchantSuspended(), "AUTH_005", CategoryAuth, 403},
		{"AlreadySettled", ErrAlreadySettled(), "CONF_001", CategoryConflict, 409},
		{"AlreadyCaptured", ErrAlreadyCaptured(), "CONF_002", CategoryConflict, 409},
		{"CurrencyMismatch", ErrCurrencyMismatch(), "CONF_004", CategoryConflict, 409},
		{"InsufficientFunds", ErrInsufficientFunds(), "PAY_001", CategoryFunds, 402},
		{"PaymentMethodBelowMinimum", ErrPaymentMethodBelowMinimum(), "PM_004", CategoryValidation, 422},
		{"StoreTimeout", ErrStoreTimeout(errors.New("deadline")), "SYS_002", CategoryDependency, 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestErrCompensationFailed_KeepsBothCauses(t *testing.T) {
	original := errors.New("credit balance: connection reset")
	rollback := errors.New("rollback: conn busy")

	err := ErrCompensationFailed(original, rollback)

	assert.Equal(t, "SYS_009", err.Code)
	assert.Equal(t, CategoryCompensation, err.Category)
	assert.True(t, errors.Is(err, original))
	assert.True(t, errors.Is(err, rollback))
}

func TestInternalError(t *testing.T) {
	inner := fmt.Errorf("unexpected")
	err := InternalError(inner)
	assert.Equal(t, "SYS_001", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.True(t, errors.Is(err, inner))
}
