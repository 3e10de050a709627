// Package vm interprets decoded bir modules.
//
// The machine has a flat little-endian byte memory shared by the data
// blob, globals and the call stack:
//
//	[0, 8)                null guard, never addressable
//	[DataBase, ...)       data blob
//	[globalsBase, ...)    globals, word aligned
//	[stackBase, memsize)  autozones, one per active frame
//
// Every value is a 64-bit word. Functions and host builtins are referred
// to by handles that can be stored in memory and called through.
//
// Calls use an explicit frame stack rather than Go recursion, so call
// depth is bounded by WithMaxCallDepth and by memory size. A VM is not
// safe for concurrent use.
package vm
