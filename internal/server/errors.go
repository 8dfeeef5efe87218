package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/archive-enricher/internal/coordinator"
	"github.com/jonathan/archive-enricher/internal/review"
)

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var notFound *review.ErrTaskNotFound
	var transition *review.ErrInvalidTransition
	var conflict *review.ErrConflict
	var duplicate *coordinator.ErrDuplicateBatch

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &transition), errors.As(err, &conflict), errors.As(err, &duplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
