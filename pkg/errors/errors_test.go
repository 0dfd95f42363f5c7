package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCodeSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrStoreUnavailable, http.StatusServiceUnavailable},
		{ErrTimeout, http.StatusServiceUnavailable},
		{ErrMalformedPostings, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatusCode(tc.err); got != tc.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPStatusCodeWrapped(t *testing.T) {
	wrapped := fmt.Errorf("%w: listing shards: connection refused", ErrStoreUnavailable)
	if got := HTTPStatusCode(wrapped); got != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatusCode(wrapped store error) = %d, want 503", got)
	}
}

func TestAppErrorStatusAndUnwrap(t *testing.T) {
	appErr := Newf(ErrInvalidInput, http.StatusBadRequest, "bad field %q", "must_have")
	if got := HTTPStatusCode(appErr); got != http.StatusBadRequest {
		t.Errorf("HTTPStatusCode(AppError) = %d, want 400", got)
	}
	if !errors.Is(appErr, ErrInvalidInput) {
		t.Error("AppError does not unwrap to its sentinel")
	}
	if appErr.Message != `bad field "must_have"` {
		t.Errorf("Message = %q", appErr.Message)
	}
}
