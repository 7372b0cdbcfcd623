package domain

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// Provider identifies a static hosting service.
type Provider string

const (
	ProviderVercel  Provider = "vercel"
	ProviderNetlify Provider = "netlify"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{ProviderVercel, ProviderNetlify}

// ParseProvider normalizes s and reports whether it names a supported provider.
func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderVercel, ProviderNetlify:
		return p, true
	default:
		return p, false
	}
}

// PublishRequest is a single publish attempt.
type PublishRequest struct {
	Provider string `json:"provider"`
	HTML     string `json:"html"`
}

// ResultKind tags the variant held by a PublishResult.
type ResultKind string

const (
	ResultSuccess  ResultKind = "success"
	ResultFallback ResultKind = "fallback"
	ResultFailure  ResultKind = "failure"
)

// ErrorKind classifies a failed publish attempt.
type ErrorKind string

const (
	ErrInvalidRequest  ErrorKind = "InvalidRequest"
	ErrUnknownProvider ErrorKind = "UnknownProvider"
	ErrDeploy          ErrorKind = "DeployError"
	ErrUnexpected      ErrorKind = "UnexpectedError"
)

// HTTPStatus maps the error kind to the status returned to API callers.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrInvalidRequest, ErrUnknownProvider:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Stage is a step of the publish state machine.
type Stage string

const (
	StageReceived           Stage = "received"
	StageValidated          Stage = "validated"
	StageArchiveBuilt       Stage = "archive_built"
	StageCredentialsMissing Stage = "credentials_missing"
	StageCredentialsPresent Stage = "credentials_present"
	StageRequestSent        Stage = "request_sent"
	StageResponseOK         Stage = "response_ok"
	StageResponseError      Stage = "response_error"
	StageFallbackReturned   Stage = "fallback_returned"
	StageSuccessReturned    Stage = "success_returned"
	StageFailureReturned    Stage = "failure_returned"
)

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s == StageFallbackReturned || s == StageSuccessReturned || s == StageFailureReturned
}

// PublishResult is the outcome of a publish attempt. Exactly one variant's
// fields are meaningful, selected by Kind.
type PublishResult struct {
	Kind ResultKind

	// Success
	URL string

	// Fallback
	Message string
	Archive []byte

	// Failure
	ErrorKind ErrorKind
	Details   string

	// LastStage is the last non-terminal stage reached before the result was produced.
	LastStage Stage
}

// Success builds a Success result.
func Success(url string) PublishResult {
	return PublishResult{Kind: ResultSuccess, URL: url}
}

// Fallback builds a Fallback result carrying the archive for manual upload.
func Fallback(message string, archive []byte) PublishResult {
	return PublishResult{Kind: ResultFallback, Message: message, Archive: archive}
}

// Failure builds a Failure result.
func Failure(kind ErrorKind, details string) PublishResult {
	return PublishResult{Kind: ResultFailure, ErrorKind: kind, Details: details}
}

// ArchiveBase64 returns the fallback archive in standard base64.
func (r PublishResult) ArchiveBase64() string {
	return base64.StdEncoding.EncodeToString(r.Archive)
}

// TerminalStage returns the terminal state matching the result's variant.
func (r PublishResult) TerminalStage() Stage {
	switch r.Kind {
	case ResultSuccess:
		return StageSuccessReturned
	case ResultFallback:
		return StageFallbackReturned
	default:
		return StageFailureReturned
	}
}
