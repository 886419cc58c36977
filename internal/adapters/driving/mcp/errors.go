// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It exposes segmentation, fused search and indexed documents to AI assistants.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// errIngestDisabled is returned by the ingest tool when no ingest service is wired.
var errIngestDisabled = errors.New("mcp: ingest is not enabled")

// errSegmentDisabled is returned by the segment tool when no segment service is wired.
var errSegmentDisabled = errors.New("mcp: segmentation is not enabled")
