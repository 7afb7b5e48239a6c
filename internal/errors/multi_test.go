package errors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moorlabs/moor/internal/errors"
)

func TestMultiError(t *testing.T) {
	t.Run("ErrorOrNil", func(t *testing.T) {
		t.Run("returns nil when empty", func(t *testing.T) {
			me := errors.NewMultiError("backend config is not valid")
			assert.Nil(t, me.ErrorOrNil())
		})
		t.Run("returns nil after appending only nils", func(t *testing.T) {
			me := errors.NewMultiError("backend config is not valid")
			me.Append(nil)
			me.Append(nil)
			assert.Nil(t, me.ErrorOrNil())
		})
		t.Run("returns itself once an error was appended", func(t *testing.T) {
			me := errors.NewMultiError("backend config is not valid")
			me.Append(errors.InvalidArgument("config", "type is unknown"))
			err := me.ErrorOrNil()
			assert.NotNil(t, err)
			assert.Contains(t, err.Error(), "backend config is not valid")
			assert.Contains(t, err.Error(), "type is unknown")
		})
	})

	t.Run("joins every appended message", func(t *testing.T) {
		me := errors.NewMultiError("backend config is not valid")
		me.Append(errors.InvalidArgument("config", "region is empty"))
		me.Append(errors.InvalidArgument("config", "bucket is empty"))

		msg := me.Error()
		assert.Contains(t, msg, "region is empty")
		assert.Contains(t, msg, "bucket is empty")
	})

	t.Run("IsEmptyError", func(t *testing.T) {
		empty := errors.NewMultiError("nothing yet")
		assert.True(t, errors.IsEmptyError(empty))

		full := errors.NewMultiError("something")
		full.Append(errors.New("boom"))
		assert.False(t, errors.IsEmptyError(full))

		assert.False(t, errors.IsEmptyError(errors.New("plain")))
	})
}

func TestDomainError(t *testing.T) {
	t.Run("carries the failure class", func(t *testing.T) {
		err := errors.NotFound("job", "job x in repo y")
		assert.True(t, errors.IsNotFound(err))
		assert.False(t, errors.IsAlreadyExists(err))
		assert.Equal(t, "not found for entity job: job x in repo y", err.Error())
	})
	t.Run("class survives inspection through wrapping", func(t *testing.T) {
		inner := errors.NotFound("object", "missing key")
		outer := errors.InternalError("job", "lookup failed", inner)
		assert.True(t, errors.IsErrorType(outer, errors.ErrInternalError))

		var de *errors.DomainError
		assert.True(t, errors.As(outer, &de))
		assert.Equal(t, errors.ErrInternalError, de.ErrorType)
	})
}
