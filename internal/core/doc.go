// Package core provides the release table and the identity logic shared by
// the API server and the sync job.
//
// The package is independent of any transport. The web handlers and the
// sync job both use it without modification.
//
// # Rows
//
// A [Row] is an ordered mapping of column name to JSON value. Key order is
// kept through decode, mutation and encode so row output keeps the
// spreadsheet's column order.
//
// # Identity
//
// Every row carries a string identifier in the reserved [IDField] column.
// The sync job assigns it with [PrepareTable]:
//
//  1. A missing Category column is derived from Scope.
//  2. An existing identifier column (__id, ExternalID, ID, Jira Key, Key) is
//     adopted as is.
//  3. Otherwise a composite "<app> - <version> - <digest>" is built.
//  4. Repeated identifiers receive "-<n>" suffixes.
//
// The server falls back to [ExtractID] and "row-<index>" for rows posted
// without an identifier.
//
// # Lookup
//
// [Store] resolves an identifier exactly first, then with a trailing
// "-<digits>" removed, so suffixed variants still reach the base row.
// Unresolved lookups return a [NotFoundError] carrying a sample of known
// identifiers.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - AUTH001: Missing or wrong shared secret
//   - VAL001-VAL006: Malformed payloads and patches
//   - ROW001: Unresolvable identifier
//   - REQ001-REQ004: Request body and lifetime errors
//   - UPS001: Ticketing system failures
//
// # Thread Safety
//
// [Store], [Service] and [MemoryAuditLog] are safe for concurrent use.
package core
