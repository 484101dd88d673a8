// Package jsonrpc implements driven.AccountAuthority over JSON-RPC 2.0 on HTTP.
//
// Two methods are used:
//
//   - get_account_data: {"account_token"} -> {"expiry"}
//   - replace_wireguard_key: {"account_token", "old_key", "new_key"} -> {"ipv4_address", "ipv6_address"}
//
// Keys travel in standard base64. Errors are mapped onto the domain taxonomy:
// the authority's invalid-account code becomes domain.ErrInvalidAccount,
// network failures, 429 and 5xx responses become domain.ErrTransient, and
// everything else becomes domain.ErrRPC.
//
// Requests are paced by a token bucket limiter that also honours Retry-After.
package jsonrpc
