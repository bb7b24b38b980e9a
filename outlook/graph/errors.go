package graph

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
)

// ErrUnknownEndpoint is returned when a tool name is not registered.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// ValidationError reports arguments rejected before any request is sent.
type ValidationError struct {
	Endpoint string
	Missing  []string
	Unknown  []string
	Invalid  []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("%v: %v", e.Endpoint, strings.Join(parts, "; "))
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Unknown) == 0 && len(e.Invalid) == 0
}

// StatusCode returns the HTTP status carried by a Graph response error, or 0.
func StatusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		return odataErr.ResponseStatusCode
	}
	return 0
}

// ErrorBody returns the raw response body of a Graph response error.
func ErrorBody(err error) string {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) || respErr.RawResponse == nil || respErr.RawResponse.Body == nil {
		return ""
	}
	data, _ := runtime.Payload(respErr.RawResponse)
	return string(data)
}

// IsNotFound reports whether err is a Graph 404.
func IsNotFound(err error) bool { return StatusCode(err) == http.StatusNotFound }

// IsUnauthorized reports whether err is a Graph 401 or 403.
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
