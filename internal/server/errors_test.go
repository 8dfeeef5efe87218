package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/archive-enricher/internal/coordinator"
	"github.com/jonathan/archive-enricher/internal/review"
	"github.com/jonathan/archive-enricher/internal/types"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&review.ErrTaskNotFound{TaskID: uuid.New()}, http.StatusNotFound},
		{&review.ErrInvalidTransition{From: types.ReviewTaskApproved, To: types.ReviewTaskInProgress}, http.StatusConflict},
		{&review.ErrConflict{TaskID: uuid.New()}, http.StatusConflict},
		{&coordinator.ErrDuplicateBatch{SourceBatchID: "batch-1"}, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", &review.ErrTaskNotFound{TaskID: uuid.New()}), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}
