package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reactiveburst/rbc-engine/internal/errors"
)

func TestErrorCodes(t *testing.T) {
	err := errors.NotFoundf("session %s not found", "sess_1")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, "session sess_1 not found", errors.GetMessage(err))
}

func TestWrapPreservesCode(t *testing.T) {
	inner := errors.InvalidArgument("bad zone")
	wrapped := errors.Wrap(inner, "failed to register move")

	assert.Equal(t, errors.CodeInvalidArgument, errors.GetCode(wrapped))
	assert.True(t, errors.IsInvalidArgument(wrapped))
	assert.Contains(t, wrapped.Error(), "failed to register move")
}

func TestWrapPlainError(t *testing.T) {
	wrapped := errors.Wrap(fmt.Errorf("connection refused"), "store read failed")
	assert.Equal(t, errors.CodeInternal, errors.GetCode(wrapped))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, "nothing"))
}

func TestWithMeta(t *testing.T) {
	err := errors.NotFound("actor not found").
		WithMeta("session_id", "sess_1").
		WithMeta("char_id", "char_9")

	assert.Equal(t, "sess_1", err.Meta["session_id"])
	assert.Equal(t, "char_9", err.Meta["char_id"])
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 404, errors.CodeNotFound.HTTPStatus())
	assert.Equal(t, 400, errors.CodeInvalidArgument.HTTPStatus())
	assert.Equal(t, 409, errors.CodeAlreadyExists.HTTPStatus())
	assert.Equal(t, 412, errors.CodeFailedPrecondition.HTTPStatus())
	assert.Equal(t, 500, errors.CodeInternal.HTTPStatus())
}

func TestValidationBuilder(t *testing.T) {
	vb := errors.NewValidationBuilder()
	vb.RequiredField("char_id")
	vb.InvalidField("attack_zones", "unknown zone")

	err := vb.Build()
	assert.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "char_id")
}

func TestValidationBuilderEmpty(t *testing.T) {
	assert.NoError(t, errors.NewValidationBuilder().Build())
}
