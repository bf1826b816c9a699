package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInternalServerError will throw if any internal server error happens.
	ErrInternalServerError = errors.New("internal server error")
	// ErrNotFound will throw if the requested item does not exist.
	ErrNotFound = errors.New("your requested item is not found")
	// ErrBadParamInput will throw if the given request-body or params are not valid.
	ErrBadParamInput = errors.New("given param is not valid")
	// ErrTokenNotCached will throw when a cache-only endpoint is called for
	// a token with no cached analysis.
	ErrTokenNotCached = errors.New("token analysis is not cached")
	// ErrRateLimited will throw when a caller exceeds its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// GetStatusCode returns the HTTP status code for a given error.
func GetStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, ErrBadParamInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTokenNotCached):
		return http.StatusPreconditionRequired
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ResponseError represents the response error struct.
type ResponseError struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// InvalidAddressError is returned when an input does not match the canonical
// 0x-prefixed 40-hex-digit address shape.
type InvalidAddressError struct {
	Input string
}

func (e InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid token address (%s)", e.Input)
}

func (e InvalidAddressError) Unwrap() error {
	return ErrBadParamInput
}

// InvalidAmountError is returned when a user-supplied amount fails to parse
// or is not positive.
type InvalidAmountError struct {
	Input string
}

func (e InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount (%s), must be a positive decimal", e.Input)
}

func (e InvalidAmountError) Unwrap() error {
	return ErrBadParamInput
}

// InvalidCriteriaError is returned for an unrecognized best-pool criteria.
type InvalidCriteriaError struct {
	Criteria string
}

func (e InvalidCriteriaError) Error() string {
	return fmt.Sprintf("invalid criteria (%s)", e.Criteria)
}

func (e InvalidCriteriaError) Unwrap() error {
	return ErrBadParamInput
}

// AllProvidersFailedError is returned by the RPC gateway after every endpoint
// failed across all retry passes.
type AllProvidersFailedError struct {
	Attempts  int
	LastError error
}

func (e AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all RPC providers failed after %d attempts: %v", e.Attempts, e.LastError)
}

func (e AllProvidersFailedError) Unwrap() error {
	return e.LastError
}

// NoPoolsFoundError is returned when discovery yields no pools for a token.
type NoPoolsFoundError struct {
	Token string
}

func (e NoPoolsFoundError) Error() string {
	return fmt.Sprintf("no pools found for token (%s)", e.Token)
}

func (e NoPoolsFoundError) Unwrap() error {
	return ErrNotFound
}

// NoTradeablePoolError is returned when every candidate pool fails the
// tradeability checks.
type NoTradeablePoolError struct {
	Token    string
	TradeUSD float64
}

func (e NoTradeablePoolError) Error() string {
	return fmt.Sprintf("no tradeable pool for token (%s) at trade size $%.2f", e.Token, e.TradeUSD)
}

func (e NoTradeablePoolError) Unwrap() error {
	return ErrNotFound
}

// SwapBlockedError is returned when the scorer flags the best pool as unsafe
// (CRITICAL risk or safety score below the floor).
type SwapBlockedError struct {
	Token       string
	RiskLevel   RiskLevel
	SafetyScore float64
}

func (e SwapBlockedError) Error() string {
	return fmt.Sprintf("swap blocked for token (%s): risk %s, safety score %.0f", e.Token, e.RiskLevel, e.SafetyScore)
}

// NoRouteFoundError is returned when the router finds no viable path.
type NoRouteFoundError struct {
	TokenIn  string
	TokenOut string
}

func (e NoRouteFoundError) Error() string {
	return fmt.Sprintf("no route found from (%s) to (%s)", e.TokenIn, e.TokenOut)
}

func (e NoRouteFoundError) Unwrap() error {
	return ErrNotFound
}

// BatchDecodeError is returned when a sub-call succeeded on chain but its
// return data failed to decode.
type BatchDecodeError struct {
	Target string
	Method string
	Err    error
}

func (e BatchDecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s returndata from (%s): %v", e.Method, e.Target, e.Err)
}

func (e BatchDecodeError) Unwrap() error {
	return e.Err
}

// InvalidCacheKeyError is returned when a cache key fails validation.
type InvalidCacheKeyError struct {
	Key string
}

func (e InvalidCacheKeyError) Error() string {
	return fmt.Sprintf("invalid cache key (%s)", e.Key)
}

func (e InvalidCacheKeyError) Unwrap() error {
	return ErrBadParamInput
}
