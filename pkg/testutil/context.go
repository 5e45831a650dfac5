package testutil

import (
	"net/http"

	"flightsurety/pkg/domain"
	"flightsurety/pkg/requestcontext"
)

// WithCaller sets the authenticated account the way RequireAuth would.
func WithCaller(req *http.Request, caller domain.Address) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithRequestID sets the correlation id the way the RequestID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
