// Package auth obtains and stores the Git host credential using the OAuth
// device authorization grant.
//
// The handshake is split in two. Flow is a state machine that performs one
// HTTP exchange per call and never sleeps:
//
//	RequestingCode -> AwaitingUser -> Polling -> Granted | Denied | Expired
//
// Run drives a Flow to completion: it prompts the user, then polls at the
// interval the host asks for until the code's expires_in deadline or the
// context ends. Sleeping goes through a Sleeper so tests run instantly.
//
// The credential is stored base64-encoded in a .token file with mode 0600.
// The encoding is obfuscation, not encryption.
package auth
