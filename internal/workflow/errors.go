package workflow

import "errors"

// ErrSuperseded is returned when a fetch or generation finished after a newer
// call or a Reset took over its state slot. Its result was discarded.
var ErrSuperseded = errors.New("result discarded: superseded by a newer request")

// ClipboardError reports a failed clipboard write.
type ClipboardError struct {
	Err error
}

func (e *ClipboardError) Error() string {
	if e == nil || e.Err == nil {
		return "clipboard write failed"
	}
	return "clipboard write failed: " + e.Err.Error()
}

func (e *ClipboardError) Unwrap() error { return e.Err }

// DownloadError reports a failed document download.
type DownloadError struct {
	Filename string
	Err      error
}

func (e *DownloadError) Error() string {
	msg := "download failed"
	if e.Filename != "" {
		msg += " (" + e.Filename + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DownloadError) Unwrap() error { return e.Err }
