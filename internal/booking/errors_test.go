package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = errors.New("sentinel")

func TestKindSurvivesWrapping(t *testing.T) {
	base := Wrap(KindConflict, "ledger.Update", errSentinel, "stale revision")
	err := WithOp("service.UpdateBooking", base)

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, errors.Is(err, errSentinel))
	assert.True(t, errors.Is(err, &Error{Kind: KindConflict}))
	assert.False(t, errors.Is(err, &Error{Kind: KindNotFound}))
	assert.Equal(t, "stale revision", DetailOf(err))
}

func TestWithOpClassifiesForeignErrors(t *testing.T) {
	err := WithOp("op", fmt.Errorf("plain"))
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Nil(t, WithOp("op", nil))
	assert.Nil(t, Wrap(KindConflict, "op", nil, ""))
}

func TestErrorMessage(t *testing.T) {
	err := Ef(KindNotFound, "service.GetBooking", "booking %s not found", "abc")
	assert.Equal(t, "service.GetBooking: not_found: booking abc not found", err.Error())
}

func TestOnlyTransientIsRetryable(t *testing.T) {
	assert.True(t, Retryable(E(KindTransient, "", "")))
	assert.False(t, Retryable(E(KindConflict, "", "")))
	assert.False(t, Retryable(nil))
}
