// Package remote groups the driven.RemoteSyncClient adapters.
//
// Adapters:
//   - gateway: JSON over HTTP client for an EDAM gateway (go-resty)
//   - fixture: replays a recorded feed from YAML, with fault injection
package remote
