package main

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/iota-uz/hr-console/modules/hrm/infrastructure/rest"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitRemote     = 4
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// remoteErr classifies an API failure: rejected payloads are validation
// failures, everything else is a remote failure.
func remoteErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
		return withCode(exitValidation, err)
	}
	return withCode(exitRemote, err)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}
