package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeNotFound, "connection missing")
	assert.Equal(t, "NOT_FOUND: connection missing", err.Error())
	assert.Nil(t, err.Cause)
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(cause, CodeConnectionFailed, "failed to connect")
	assert.Contains(t, err.Error(), "CONNECTION_FAILED")
	assert.Contains(t, err.Error(), "refused")
	assert.Equal(t, cause, errors.Unwrap(err))

	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestIsComparesByCode(t *testing.T) {
	err := Wrapf(fmt.Errorf("boom"), CodeNotFound, "missing %q", "t1")
	assert.True(t, errors.Is(err, ErrConnectionNotFound))
	assert.False(t, errors.Is(err, ErrConnectionExists))
}

func TestWithDetail(t *testing.T) {
	err := New(CodePolicyRejected, "blocked keyword").
		WithDetail("reason", ReasonForbiddenKeyword).
		WithDetail("keyword", "DROP")

	require.NotNil(t, err.Details)
	assert.Equal(t, ReasonForbiddenKeyword, err.Details["reason"])
	assert.Equal(t, "DROP", err.Details["keyword"])
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodePolicyRejected, GetCode(New(CodePolicyRejected, "no")))
	assert.Equal(t, CodeInternal, GetCode(fmt.Errorf("plain error")))

	wrapped := fmt.Errorf("outer: %w", ErrQueryTimeout)
	assert.Equal(t, CodeDeadlineExceeded, GetCode(wrapped))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(ErrConnectionNotFound))
	assert.False(t, IsNotFound(ErrQueryTimeout))
	assert.True(t, IsTimeout(ErrQueryTimeout))
	assert.True(t, IsPolicyRejected(New(CodePolicyRejected, "nope")))
	assert.False(t, IsPolicyRejected(fmt.Errorf("plain")))
}
