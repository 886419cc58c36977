// Package connectors contains document sources that feed ingestion.
//
// The filesystem connector walks files and directories, detects MIME types
// and watches for changes with fsnotify.
package connectors
