// Package http serves the upload form, the report pages and the report
// downloads.
//
// This file turns multipart uploads and query strings into the inputs of
// the ingest and report services.
package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"facturas/internal/cfdi"
	"facturas/internal/report"
)

// FilesField is the multipart field carrying the XML documents.
const FilesField = "files"

// multipartMemory is kept in memory before parts spill to temp files.
const multipartMemory = 8 << 20

var (
	ErrNoFiles        = errors.New("no files uploaded")
	ErrTooManyFiles   = errors.New("too many files")
	ErrUploadTooLarge = errors.New("upload too large")
	ErrBadUpload      = errors.New("invalid upload")
	ErrBadQuery       = errors.New("invalid query string")
)

// UploadLimits bounds a single upload request.
type UploadLimits struct {
	MaxBytes int64
	MaxFiles int
}

// ParseUploads reads every file of the "files" field into a document
// labelled with its base name. Parts without a file name are skipped.
func ParseUploads(w http.ResponseWriter, r *http.Request, limits UploadLimits) ([]cfdi.Document, error) {
	if limits.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %v", ErrBadUpload, err)
	}

	var headers []*multipart.FileHeader
	for _, fh := range r.MultipartForm.File[FilesField] {
		if strings.TrimSpace(fh.Filename) != "" {
			headers = append(headers, fh)
		}
	}
	if len(headers) == 0 {
		return nil, ErrNoFiles
	}
	if limits.MaxFiles > 0 && len(headers) > limits.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, limit is %d", ErrTooManyFiles, len(headers), limits.MaxFiles)
	}

	docs := make([]cfdi.Document, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrBadUpload, fh.Filename, err)
		}
		docs = append(docs, cfdi.Document{Label: uploadLabel(fh.Filename), Data: data})
	}
	return docs, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// uploadLabel strips any client-side directory from a file name.
func uploadLabel(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	return sanitizeInput(filepath.Base(name))
}

// ParseFilter reads the optional issuer RFC filter.
func ParseFilter(values url.Values) report.Filter {
	return report.Filter{IssuerRFC: sanitizeInput(values.Get("rfc"))}
}

// RequestFilter parses the request form and reads the filter from it. A
// malformed query is an error instead of an inactive filter.
func RequestFilter(r *http.Request) (report.Filter, error) {
	if err := r.ParseForm(); err != nil {
		return report.Filter{}, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}
	return ParseFilter(r.Form), nil
}

// filterQuery renders a filter back into a query string, "" when inactive.
func filterQuery(f report.Filter) string {
	if !f.Active() {
		return ""
	}
	return "?" + url.Values{"rfc": {f.IssuerRFC}}.Encode()
}
