// Package auth is the authentication and authorization core for the
// taskdeck task-tracking services.
//
// It covers four concerns:
//   - Credential hashing: bcrypt with per-call salts, constant-time
//     verification, malformed hashes treated as a failed comparison.
//   - Token service: HS256 bearer tokens with a default TTL, verified
//     against the federated signing secret first (when configured) and
//     the primary secret second. Secrets are resolved through the Config
//     interface on every call so they can rotate without a restart.
//   - Identity resolution: a verified claim set is mapped to a local
//     User, auto-provisioning one on the first login of a trusted
//     federated subject. Concurrent first logins are serialized by the
//     unique constraint on federated_id; a violated insert retries the
//     lookup instead of failing.
//   - Authorization guard: CurrentUser, RequireActive, RequireAdmin, and
//     CheckSelfOrAdmin are the only authorization entry points resource
//     endpoints should use. Admin self-deactivation is blocked by the
//     status command, layered on top of the guard primitives.
//
// Storage goes through the Users directory, implemented on Bun. All
// expected failures are returned as typed go-errors values; the
// transport layer maps categories to status codes.
package auth
