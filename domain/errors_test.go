package domain_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dexlens/dexlens/domain"
)

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid address", domain.InvalidAddressError{Input: "xyz"}, http.StatusBadRequest},
		{"invalid amount", domain.InvalidAmountError{Input: "-1"}, http.StatusBadRequest},
		{"invalid criteria", domain.InvalidCriteriaError{Criteria: "best"}, http.StatusBadRequest},
		{"invalid cache key", domain.InvalidCacheKeyError{Key: "Bad"}, http.StatusBadRequest},
		{"no pools", domain.NoPoolsFoundError{Token: "0xabc"}, http.StatusNotFound},
		{"no tradeable pool", domain.NoTradeablePoolError{Token: "0xabc", TradeUSD: 100}, http.StatusNotFound},
		{"no route", domain.NoRouteFoundError{TokenIn: "0xa", TokenOut: "0xb"}, http.StatusNotFound},
		{"not cached", domain.ErrTokenNotCached, http.StatusPreconditionRequired},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"opaque failure", errors.New("boom"), http.StatusInternalServerError},
		{"providers exhausted", domain.AllProvidersFailedError{Attempts: 3, LastError: errors.New("down")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, domain.GetStatusCode(tt.err))
		})
	}
}

func TestAllProvidersFailedErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := domain.AllProvidersFailedError{Attempts: 2, LastError: inner}

	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "2 attempts")
}
