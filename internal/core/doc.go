// Package core compiles declarative mapping plans and applies them to tables.
//
// This package holds the service logic between the mapping engine and any
// transport. It can be used by web handlers, the CLI, or tests without
// modification.
//
// # Plans
//
// A [Plan] is a named list of [Step] values, read from YAML or JSON:
//
//	name: contacts
//	steps:
//	  - rename: {from: E-mail, to: email}
//	  - combine: {columns: [fname, lname], into: full_name}
//	  - transform: {column: state, with: us_state}
//	  - protect:
//	      columns: [email]
//	      steps:
//	        - delete: {column: email}
//
// [Compile] turns a plan into a mapping.Mapping. Steps run in sequence;
// first_of tries alternatives against the same input until one succeeds.
// Combiners and normalizers are referred to by name, see [LookupCombiner]
// and [LookupNormalizer].
//
// # Registry
//
// Plans loaded from disk are registered at startup with [RegisterDir] and
// are compiled once. Plans saved through the API live in a [PlanStore].
//
// # Service
//
// [Service.Apply] bounds concurrency with an [ApplyLimiter], records each
// [Run] in a [RunStore] and logs the outcome. A mapping failure is a normal
// result with Status [RunFailed]; only infrastructure problems are errors.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code prefix for support reference:
//
//   - PLN: plan errors (unknown, invalid)
//   - MAP: mapping errors (missing column, bad position, length mismatch)
//   - DOC: request body errors
//   - APL: apply errors (busy, too large, cancelled)
//   - DB: database errors
package core
