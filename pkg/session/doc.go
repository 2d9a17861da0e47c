// Package session persists conversation transcripts as JSONL files, one file
// per session, with an optional SQLite index over session metadata.
//
// Invariants:
// - Session keys are validated and path-safe.
// - Writes for the same session are serialized.
// - Corrupt lines are skipped on load; Repair rewrites the file without them.
//
// Usage:
//
//	store, _ := session.NewStore("/tmp/golem/sessions")
//	_ = store.Append("cli-1", conversation.Message{Role: conversation.RoleUser, Content: "hello"})
//	messages, _ := store.Load("cli-1")
//	_ = messages
package session
