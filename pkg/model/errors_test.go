package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusConflict, StatusOf(Errorf(StatusConflict, "node %q already exists", "a")))
	assert.Equal(t, StatusInternalServerError, StatusOf(errors.New("boom")))

	wrapped := fmt.Errorf("statement 2: %w", Errorf(StatusBadRequest, "bad"))
	assert.Equal(t, StatusBadRequest, StatusOf(wrapped))
}

func TestStatusHTTPMapping(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusOK.HTTPStatus())
	assert.Equal(t, http.StatusNoContent, StatusNoContent.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, StatusBadRequest.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, StatusNotFound.HTTPStatus())
	assert.Equal(t, http.StatusConflict, StatusConflict.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, StatusInternalServerError.HTTPStatus())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Errorf(StatusInternalServerError, "saving snapshot").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "InternalServerError: saving snapshot: disk full", err.Error())
}
