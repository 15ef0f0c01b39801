package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("shopify: 503")
	err := Fail(ErrConnectorError, "price update rejected").
		WithCause(cause).
		WithDetail("target", "shopify").
		WithRetryable(true)

	assert.Equal(t, "connector_error: price update rejected: shopify: 503", err.Error())
	assert.ErrorIs(t, err, ErrConnectorError)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInternal)
	assert.Equal(t, map[string]any{"target": "shopify", "retryable": true}, err.Details)
	if assert.NotNil(t, err.Retryable) {
		assert.True(t, *err.Retryable)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", Fail(ErrPolicyViolation, "blocked"))
	assert.Equal(t, ErrPolicyViolation, KindOf(wrapped))
	assert.Equal(t, ErrInvalidStatus, KindOf(fmt.Errorf("tx: %w", ErrInvalidStatus)))
	assert.Nil(t, KindOf(errors.New("boom")))
}

func TestErrorWithoutKind(t *testing.T) {
	assert.Equal(t, "internal_error", (&Error{}).Error())
}
