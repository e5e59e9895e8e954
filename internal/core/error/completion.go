package errx

import "net/http"

// WrapCompletion maps completion backend errors to the unified Error type.
func WrapCompletion(err error) *Error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, CompletionErrorMessage)
}
