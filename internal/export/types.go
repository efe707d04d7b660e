// Package export serializes a project's records to downloadable reports:
// the two control-table CSVs and a PDF rendering of the same read-side.
package export

import "errors"

// Result is a generated artifact ready to stream to the client.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates the headless browser needed for PDF
// rendering is not installed on this host.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
