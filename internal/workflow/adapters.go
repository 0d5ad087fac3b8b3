package workflow

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/KaramelBytes/readmegen-cli/internal/utils"
	"github.com/atotto/clipboard"
)

// SystemClipboard writes to the host clipboard.
type SystemClipboard struct{}

// WriteAll implements Clipboard.
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}

// FileDownloader saves documents into Dir.
type FileDownloader struct {
	Dir string
	// Path is the location of the last successful write.
	Path string
}

// Download implements Downloader. Existing files are overwritten.
func (d *FileDownloader) Download(content, filename string) error {
	path := filepath.Join(d.Dir, utils.SanitizeFilename(filename))
	if err := utils.SafeWriteFile(path, []byte(content)); err != nil {
		return err
	}
	d.Path = path
	return nil
}

// HTTPDownloader serves a document as a markdown attachment.
type HTTPDownloader struct {
	W http.ResponseWriter
}

// Download implements Downloader.
func (d HTTPDownloader) Download(content, filename string) error {
	h := d.W.Header()
	h.Set("Content-Type", "text/markdown; charset=utf-8")
	h.Set("Content-Disposition", contentDisposition(filename))
	h.Set("Content-Length", strconv.Itoa(len(content)))
	d.W.WriteHeader(http.StatusOK)
	_, err := d.W.Write([]byte(content))
	return err
}

// contentDisposition quotes or RFC 2231 encodes filename as needed.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
