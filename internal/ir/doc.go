// Package ir defines the intermediate representation consumed by the bir
// back end: programs made of externs, a constant data blob, globals and
// functions whose bodies are flat sequences of ops.
//
// This package contains the data model, structural validation, and the
// canonical JSON dump used for hashing and golden comparison. All other
// internal packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - Values are 64-bit unsigned words; signedness is a property of the op
//   - Parameters occupy the first autovar slots (Params <= AutoVars)
//   - Label ids are per function and assigned in declaration order
//   - The zero Arg is Bogus
package ir
