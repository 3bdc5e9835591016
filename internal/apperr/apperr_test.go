package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthenticated:    http.StatusUnauthorized,
		KindTokenExpired:       http.StatusUnauthorized,
		KindForbidden:          http.StatusForbidden,
		KindNotFound:           http.StatusNotFound,
		KindConflict:           http.StatusConflict,
		KindValidationFailed:   http.StatusBadRequest,
		KindServiceUnavailable: http.StatusServiceUnavailable,
		KindRateLimited:        http.StatusTooManyRequests,
		KindInternal:           http.StatusInternalServerError,
		Kind("???"):            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind)
	}
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("mark sold: %w", NotFound("bike not found or already sold"))
	assert.Equal(t, KindNotFound, KindOf(err))

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestAsClassifiesUnknownAsInternal(t *testing.T) {
	cause := errors.New("connection reset")
	e := As(cause)

	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, "internal server error", e.Message)
	assert.ErrorIs(t, e, cause)
}

func TestValidationCarriesFields(t *testing.T) {
	e := Validation(Field("sold_price", "must be greater than 0"), Field("customer.name", "is required"))

	assert.Equal(t, KindValidationFailed, e.Kind)
	assert.Len(t, e.Fields, 2)
	assert.Equal(t, "sold_price", e.Fields[0].Field)
}
