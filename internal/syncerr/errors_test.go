package syncerr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassifyKnownSentinels(t *testing.T) {
	assert.Equal(t, KindValidation, Classify(ErrPathNotAllowed))
	assert.Equal(t, KindRetryable, Classify(ErrNetworkTimeout))
	assert.Equal(t, KindPermanent, Classify(ErrQuotaExceeded))
	assert.Equal(t, KindLifecycle, Classify(ErrServiceStopping))
}

func TestClassifyWrappedError(t *testing.T) {
	wrapped := errors.Wrap(ErrConnectionReset, "dial tcp")
	assert.Equal(t, KindRetryable, Classify(wrapped))
}

func TestClassifyUnknownError(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify(errors.New("something else")))
	assert.Equal(t, KindUnknown, Classify(nil))
}

func TestRetryableAndPermanent(t *testing.T) {
	assert.True(t, Retryable(ErrFilesystemBusy))
	assert.False(t, Retryable(ErrQuotaExceeded))

	assert.True(t, Permanent(ErrDecryptFailed))
	assert.False(t, Permanent(ErrNetworkTimeout))
	assert.True(t, Permanent(errors.New("unrecognised")), "unknown errors fail closed as permanent")
}
