package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil))

	cause := fmt.Errorf("dial tcp 127.0.0.1:3306: connection refused")
	wrapped := WrapError(cause)
	assert.ErrorIs(t, wrapped, ErrUnavailable)
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestWrapErrorDistinguishable(t *testing.T) {
	domainErr := errors.New("insufficient collateral")
	assert.NotErrorIs(t, domainErr, ErrUnavailable)
	assert.ErrorIs(t, WrapError(domainErr), ErrUnavailable)
}
