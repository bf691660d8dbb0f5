// Package core provides the data recovery and validation engine behind the
// table generation service.
//
// This package holds all domain logic independent of any UI or transport
// layer. It can be used by web handlers, the CLI, the MCP tools, or tests
// without modification.
//
// # Architecture
//
// The package is organized around four components that share the [Table]
// value type:
//
//   - Normalizer: bounds free-text columns before they reach a synthesizer
//     ([HashFreeText], [TruncateFreeText]).
//   - Schema Inference: picks a primary key per table and links tables that
//     share a key column ([InferSchema]).
//   - Recovery: turns untrusted generated text into a table or a
//     [RecoveryError] ([RecoverTable]).
//   - Output Assembler: serializes tables as CSV, spreadsheet or parquet
//     ([Assemble]).
//
// Tables are immutable once built. Every transformation returns a new table.
//
// # Pipelines
//
// [Service] wires the components to the injected engines:
//
//	prompt -> Completer -> RecoverTable -> Assemble
//	tables -> Normalize -> InferSchema -> RelationalSynthesizer -> Assemble
//
// Each pipeline call creates its own [Run] and carries it on the context;
// nothing is shared between requests except the artifact store.
//
// # Error Handling
//
// Recovery and inference failures are returned as values ([*RecoveryError],
// [*ConfigurationError]) and never retried. Technical errors are mapped to
// user-facing messages with [MapError]:
//
//   - REC001-REC003: Recovery failures (no table, ragged rows, parse errors)
//   - CFG001-CFG003: Configuration errors (empty tables, bad options)
//   - GEN001-GEN002: Text generator failures
//   - SYN001-SYN002: Synthesizer failures
//   - FILE001-FILE005: File errors (size, encoding, format)
//   - RUN001-RUN003: Run errors (busy, cancelled, timeout)
package core
