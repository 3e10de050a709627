// Package target is the registry of code generation backends.
//
// A codegen module exposes one entry point, Codegen.APIs, returning the
// capability records for the targets it implements. The host merges every
// codegen into a Registry once at start-up and then only reads it.
//
// Capability records are versioned. V1 is the only shape today; callers
// dispatch through Open, which switches over every known version and
// fails closed on anything else.
package target
