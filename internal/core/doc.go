// Package core routes address-based CRUD requests to relational storage.
//
// This package is independent of any transport. The HTTP server, the CLI and
// tests all drive the same [Provider].
//
// # Architecture
//
// A [Provider] is built once from a table list and a storage backend:
//
//	p, err := core.New(core.Options{ProviderName: "com.example.inventory"}, store,
//	    schema.NewTable("items", schema.Text("name"), schema.Integer("qty")),
//	)
//	if !p.Open(ctx) {
//	    return p.Err()
//	}
//
// Every request then flows resolve, validate, rewrite, execute and notify:
//
//  1. The address ("items" or "items/3") is resolved to a table and scope.
//  2. Reads check the projection and ORDER BY terms against the table.
//  3. Row addresses add "_id = ?" ahead of the caller's filter, with the id
//     bound as the first argument.
//  4. The store executes one statement.
//  5. Successful mutations publish a change to the notify hub.
//
// A resolve failure aborts before storage is touched. Storage failures are
// returned unchanged and never retried.
//
// # Error Codes Reference
//
// Technical errors are mapped to user-facing messages with [MapError].
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins.
//
//	ADDR001  - Address matches no resource          ("unknown uri")
//	TBL001   - Table not found                      ("table not found")
//	TBL002   - Table is not part of the schema      ("unknown table")
//	PROJ001  - Unknown projection or row column     ("invalid projection")
//	SCOPE001 - Operation not valid at this address  ("unsupported scope")
//	FLT001   - Structured filter rejected           ("invalid filter")
//	CSV001   - CSV header unusable                  ("invalid csv")
//	ROW001   - Update without values                ("empty values")
//	STORE001 - Storage not ready                    ("provider not open")
//	STORE002 - Table creation failed                ("create table")
//	DB001    - Duplicate key                        ("duplicate key")
//	DB002    - Unique constraint                    ("unique constraint", "violates unique", "duplicate entry")
//	DB003    - Not null constraint                  ("not null constraint", "violates not-null", "cannot be null")
//	DB004    - Connection refused                   ("connection refused")
//	DB005    - Connection reset                     ("connection reset")
//	DB006    - Timeout                              ("timeout")
//	DB007    - Deadlock or busy database            ("deadlock", "database is locked")
//	REQ001   - Request cancelled                    ("context canceled")
//	REQ002   - Request deadline exceeded            ("context deadline exceeded")
//	REQ003   - Malformed request body               ("invalid request body")
//	ERR000   - Anything else; check the server logs
package core
