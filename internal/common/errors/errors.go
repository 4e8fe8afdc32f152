package errors

import (
	"fmt"
	"net/http"
)

// Error codes
const (
	// 4xx Client Errors
	CodeInvalidInput          = "INVALID_INPUT"
	CodeMalformedToken        = "MALFORMED_TOKEN"
	CodeUnsupportedVersion    = "UNSUPPORTED_VERSION"
	CodeTokenExpired          = "TOKEN_EXPIRED"
	CodeInvalidTokenSignature = "INVALID_TOKEN_SIGNATURE"
	CodeChainMismatch         = "CHAIN_MISMATCH"
	CodeContractMismatch      = "CONTRACT_MISMATCH"
	CodeBadWalletSignature    = "BAD_WALLET_SIGNATURE"
	CodeNotOwner              = "NOT_OWNER"
	CodeAlreadyConsumed       = "ALREADY_CONSUMED"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"

	// 5xx Server Errors
	CodeInternal             = "INTERNAL_ERROR"
	CodeOwnershipCheckFailed = "OWNERSHIP_CHECK_FAILED"
	CodeRenderError          = "RENDER_ERROR"
	CodeLockError            = "LOCK_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// Error constructors

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func MalformedToken() *AppError {
	return &AppError{
		Code:       CodeMalformedToken,
		Message:    "Certificate token is malformed",
		StatusCode: http.StatusBadRequest,
	}
}

func UnsupportedVersion() *AppError {
	return &AppError{
		Code:       CodeUnsupportedVersion,
		Message:    "Certificate token version is not supported",
		StatusCode: http.StatusBadRequest,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Code:       CodeTokenExpired,
		Message:    "Certificate token has expired",
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidTokenSignature() *AppError {
	return &AppError{
		Code:       CodeInvalidTokenSignature,
		Message:    "Certificate token signature is invalid",
		StatusCode: http.StatusBadRequest,
	}
}

func ChainMismatch(got, want int64) *AppError {
	return &AppError{
		Code:       CodeChainMismatch,
		Message:    "Token was issued for a different chain",
		StatusCode: http.StatusBadRequest,
		Details: map[string]any{
			"token_chain_id":    got,
			"expected_chain_id": want,
		},
	}
}

func ContractMismatch(got, want string) *AppError {
	return &AppError{
		Code:       CodeContractMismatch,
		Message:    "Token is bound to a different NFT contract",
		StatusCode: http.StatusBadRequest,
		Details: map[string]any{
			"token_contract":    got,
			"expected_contract": want,
		},
	}
}

func BadWalletSignature() *AppError {
	return &AppError{
		Code:       CodeBadWalletSignature,
		Message:    "Signature does not match the claimed wallet",
		StatusCode: http.StatusUnauthorized,
	}
}

func NotOwner() *AppError {
	return &AppError{
		Code:       CodeNotOwner,
		Message:    "Wallet is not the on-chain owner of this token",
		StatusCode: http.StatusUnauthorized,
	}
}

func AlreadyConsumed() *AppError {
	return &AppError{
		Code:       CodeAlreadyConsumed,
		Message:    "Certificate has already been downloaded",
		StatusCode: http.StatusGone,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func OwnershipCheckFailed(err error) *AppError {
	return &AppError{
		Code:       CodeOwnershipCheckFailed,
		Message:    "On-chain ownership lookup failed. Token may not be minted yet.",
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

func RenderError(err error) *AppError {
	return &AppError{
		Code:       CodeRenderError,
		Message:    "Failed to render the certificate image",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func LockError(err error) *AppError {
	return &AppError{
		Code:       CodeLockError,
		Message:    "Failed to reach the lock store",
		StatusCode: http.StatusServiceUnavailable,
		Err:        err,
	}
}
