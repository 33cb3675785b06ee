// Package file provides a filesystem implementation of driven.ResourceStore.
//
// Each resource is stored as <name>.json (indented JSON) and, when YAML
// output is enabled, as <name>.yml alongside it. Binary fields are encoded
// as URL-safe base64 in both formats.
//
// # Atomicity
//
// Every file is first written to a temporary file in the .staging
// directory and then renamed into place, so a reader sees either the
// previous content or the new content, never a partial file. Leftover
// staged files from an interrupted write are removed when the store opens.
//
// # Data Location
//
// By default, the mirror lives at ~/.notesync/data/mirror. The store is
// built on go-billy, so tests run it against an in-memory filesystem.
package file
