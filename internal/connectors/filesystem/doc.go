// Package filesystem reads local files as raw documents for ingestion.
//
// A Source is rooted at a file or directory. Walk streams every visible
// file below the root; Watch streams create/update/delete changes. Hidden
// files and directories (names starting with ".") are skipped.
package filesystem
