// Package normalisers provides implementations of the Normaliser interface
// for various document formats, and the Registry that picks one per MIME
// type by priority.
//
// Normalisers are registered with the Registry at startup via
// RegisterDefaults.
package normalisers
