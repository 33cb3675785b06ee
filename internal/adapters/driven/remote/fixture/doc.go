// Package fixture replays a recorded account from a YAML feed.
//
// It backs --fixture runs and end-to-end tests without network access.
// Faults queued per operation let a feed exercise rate limiting, transient
// failures and rejected tokens:
//
//	notebooks:
//	  - {guid: nb-1, name: Inbox, updateSequenceNum: 1}
//	notes:
//	  - {guid: A, title: Hello, content: "<en-note/>", updateSequenceNum: 2}
//	faults:
//	  get_note: ["rate_limit:2s", transient]
package fixture
