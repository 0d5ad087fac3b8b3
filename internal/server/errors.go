package server

import (
	"errors"
	"net/http"

	"github.com/KaramelBytes/readmegen-cli/internal/github"
	"github.com/KaramelBytes/readmegen-cli/internal/readme"
	"github.com/KaramelBytes/readmegen-cli/internal/workflow"
)

// statusFor maps workflow failures onto HTTP status codes for JSON callers.
func statusFor(err error) int {
	var (
		nf  *github.NotFoundError
		up  *github.UpstreamError
		te  *github.TransportError
		gen *readme.GenerationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, github.ErrParse), errors.Is(err, readme.ErrMissingCredential):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.Is(err, readme.ErrNoRepository), errors.Is(err, workflow.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &up), errors.As(err, &te), errors.As(err, &gen):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
