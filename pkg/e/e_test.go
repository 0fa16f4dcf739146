package e

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	err := Wrap("ProductUseCase.Create", ErrUnsupportedImage)

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, ErrUnsupportedImage))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "ProductUseCase.Create: unsupported image format", err.Error())
}

func TestMessage(t *testing.T) {
	msg, ok := Message(Wrap("a", Wrap("b", ErrProductNotFound)))
	assert.True(t, ok)
	assert.Equal(t, "product not found", msg)

	_, ok = Message(errors.New("plain"))
	assert.False(t, ok)
}
