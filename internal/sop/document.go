// Package sop defines the domain types for tenant-owned standard
// operating procedure documents.
package sop

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedDocument indicates a document is missing required fields.
// Malformed documents are skipped during ingestion, never partially stored.
var ErrMalformedDocument = errors.New("malformed document")

// Document is a tenant-owned SOP as supplied to the ingestion pipeline.
// Documents are immutable once ingested; an update is modeled as
// delete + re-ingest.
type Document struct {
	TenantID string         `json:"tenant_id"`
	Title    string         `json:"title"`
	Body     string         `json:"content"`
	Category string         `json:"category"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the fields ingestion requires. Category and tags are
// optional; title and body are not.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrMalformedDocument)
	}
	if strings.TrimSpace(d.Body) == "" {
		return fmt.Errorf("%w: missing content", ErrMalformedDocument)
	}
	return nil
}
