// Package core holds the conversion domain: parsing delimited text into a
// Dataset and tracking each user's conversion session.
//
// Nothing here knows about HTTP or the terminal. Web handlers and the CLI
// both go through the same entry points.
//
// # Parsing
//
// [ParseSource] validates a [Source] by name or media type, reads it with a
// size cap and hands the bytes to [Parse]. The first non-blank line is the
// header; header names are trimmed and made unique with [NormalizeHeader].
// Cells become [Value]s through [CoerceCell]: canonical integers turn into
// numbers, everything else stays text, padded cells are null.
//
// Every error wraps one of [ErrInvalidFormat], [ErrParseFailure] or
// [ErrEmptyResult]. An empty result still carries the (empty) dataset.
//
// # Sessions
//
// A [Session] owns one immutable [State] at a time. [Session.Ingest] is the
// only way a file gets in: it bumps the generation, parses outside the lock
// and applies the result only if no newer ingestion started meanwhile.
// A failed parse keeps the previous dataset; an empty one replaces it.
//
// Sessions live in a [Store] that expires idle ones. A shared
// [ParseLimiter] bounds how many files are parsed at once.
//
// # Error Handling
//
// [MapError] turns technical errors into [UserMessage]s with a support code:
//
//   - FILE001-FILE006: file errors (size, CSV syntax, empty, wrong type)
//   - CONV001-CONV003: export errors
//   - UPL002-UPL005: capacity, cancellation and timeouts
//   - SES001: expired session
//   - REQ001: invalid page or size parameter
package core
