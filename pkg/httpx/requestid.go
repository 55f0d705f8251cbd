package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/rolechat/pkg/idx"
)

// HeaderRequestID carries the request id to the backend.
const HeaderRequestID = "X-Request-ID"

// RequestID tags every outbound request with a ULID. A caller supplied id is
// kept when it is a valid ULID and replaced otherwise. The request is cloned,
// never mutated.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			id, _ := idx.Parse(r.Header.Get(HeaderRequestID))
			if !id.IsZero() {
				return next.RoundTrip(r)
			}

			r = r.Clone(r.Context())
			r.Header.Set(HeaderRequestID, idx.New().String())
			return next.RoundTrip(r)
		})
	}
}
