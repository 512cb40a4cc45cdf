package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCode(t *testing.T) {
	base := ConfigInvalid("seed is not an integer")
	wrapped := Wrap(fmt.Errorf("decode: %w", base), "loading profile.yaml")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.Contains(t, wrapped.Error(), "loading profile.yaml")
	assert.Contains(t, wrapped.Error(), "seed is not an integer")
}

func TestWrap_PlainError(t *testing.T) {
	err := Wrap(fs.ErrNotExist, "reading observations")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.True(t, stderrors.Is(err, fs.ErrNotExist))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, CodeIOError, GetCode(IOError("out.csv", fs.ErrPermission)))
	assert.ErrorIs(t, IOError("out.csv", fs.ErrPermission), fs.ErrPermission)
	assert.Equal(t, CodeDatabaseError, GetCode(WithCode(CodeDatabaseError, fs.ErrClosed, "insert")))
	assert.Equal(t, "UNKNOWN", GetCode(fs.ErrClosed))
	assert.Equal(t, "metric gdp not found", NotFound("metric gdp").Error())
}
