package github

import (
	"errors"
	"fmt"
)

// ErrParse is returned when a string does not contain a github.com/{owner}/{repo} reference.
var ErrParse = errors.New("Invalid GitHub URL. Please enter a valid GitHub repository URL.")

// NotFoundMessage is the user-facing text for a 404 from the repository endpoint.
const NotFoundMessage = "Repository not found. Please check the URL and try again."

// NotFoundError indicates the repository does not exist or is not visible.
type NotFoundError struct {
	Ref RepoRef
}

func (e *NotFoundError) Error() string { return NotFoundMessage }

// UpstreamError indicates a non-2xx response other than 404, or an unreadable body.
type UpstreamError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Failed to fetch repository: %v", e.Err)
	}
	return "Failed to fetch repository: " + e.Status
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// TransportError indicates the request never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e == nil || e.Err == nil {
		return "transport error"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
