package server

import (
	"errors"
	"net/http"

	"github.com/Dannaccb/be-kind/pkg/sdk"
)

// statusFor maps an upstream failure to the status of the rendered page.
func statusFor(err error) int {
	var apiErr *sdk.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case sdk.KindUnauthenticated:
			return http.StatusUnauthorized
		case sdk.KindHTTP:
			if apiErr.Status >= 400 && apiErr.Status < 500 {
				return apiErr.Status
			}
		}
		return http.StatusBadGateway
	}
	switch {
	case errors.Is(err, sdk.ErrNoToken), errors.Is(err, sdk.ErrInvalidResponse), errors.Is(err, sdk.ErrContractViolation):
		return http.StatusBadGateway
	case errors.Is(err, sdk.ErrIconRequired):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
