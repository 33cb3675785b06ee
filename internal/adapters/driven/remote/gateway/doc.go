// Package gateway implements driven.RemoteSyncClient over the EDAM JSON
// gateway using go-resty.
//
// Every operation is a POST with the authentication token in the body.
// User store calls go to <host>/edam/user; note store calls go to the
// shard URL returned by getNoteStoreUrl, which is cached per client.
//
// Failures are mapped to the classes the sync engine retries on:
//   - RATE_LIMIT_REACHED or HTTP 429: *domain.RateLimitError
//   - connection failures and unavailable shards: domain.ErrTransient
//   - rejected or expired tokens: domain.ErrUnretryable and domain.ErrAuthInvalid
package gateway
