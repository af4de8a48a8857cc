// Package store provides a SQLite-backed document store for planner data.
//
// Documents are JSON objects grouped into named collections (tasks,
// recurringPatterns). The store offers the operations the recurrence core
// needs and nothing more:
//   - Add: append a new document, returning its generated id
//   - Get / Query: field-level reads with equality, null and range filters
//   - Update: field-level partial update of one document
//   - CommitBatch: atomic partial updates of up to MaxBatchOps documents
//
// # Conventions
//
// Documents are stored as canonical JSON: keys sorted, strings NFC
// normalized, no HTML escaping, no floats. A nil field value means "absent";
// writing nil removes the field, and an absent field matches IsNull.
//
// Query results are ordered by insertion (seq ASC, id ASC) so repeated reads
// return identical results.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
