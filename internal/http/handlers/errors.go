// Package handlers defines the error codes returned by the API.
//
// The constants below form the stable machine-readable taxonomy carried in
// every ErrorResponse alongside the HTTP status (see fail() in
// response.go). Codes are lowercase snake_case; the generic ones mirror
// common HTTP status semantics, while the domain-specific ones cover
// business failures a status alone cannot express (a synthesis cycle
// blowing up, a file archive failing to assemble). Handlers pick the most
// specific code that applies, and clients branch on the code rather than
// the message.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "finish request already exists"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeCycleFailed      = "cycle_failed"
	ErrCodeDownloadFailed   = "download_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
