// Package schema declares the contract a structured backend payload must
// satisfy (field table with types, required flags, enums and numeric
// bounds) and validates decoded values against it.
//
// Validation is deliberately strict: runtime types must match the declared
// types exactly and no coercion is performed, so a numeric-looking string
// never slips through as a number. Every violation found in one pass is
// reported, which lets repair loops correct all problems in a single
// feedback turn.
package schema
