package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:           http.StatusUnprocessableEntity,
		CodeUnauthorized:         http.StatusUnauthorized,
		CodeNotFound:             http.StatusNotFound,
		CodeConflict:             http.StatusConflict,
		CodeUnsupportedMediaType: http.StatusBadRequest,
		CodePayloadTooLarge:      http.StatusBadRequest,
		CodeParseFailure:         http.StatusInternalServerError,
		CodeCorruptDocument:      http.StatusInternalServerError,
		CodeRateLimited:          http.StatusTooManyRequests,
		CodeInternal:             http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(code, "x")), "code %s", code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("upload: %w", Wrap(cause, CodeInternal, "failed to store"))

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsCode(err, CodeInternal))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.Equal(t, "failed to store", MessageOf(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestMessageOfHidesPlainErrors(t *testing.T) {
	assert.Equal(t, "internal server error", MessageOf(errors.New("pq: connection refused")))
}
