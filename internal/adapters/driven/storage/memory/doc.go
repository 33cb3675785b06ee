// Package memory provides in-memory implementations of driven port
// interfaces. They back service tests and never persist anything.
package memory
