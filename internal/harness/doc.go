// Package harness runs bir programs against YAML scenarios.
//
// A scenario names a program, a sequence of top-level calls with their
// expected outcomes, and optionally the exact text the program must write.
// Running a scenario produces a trace of call/return/fault events stamped
// with a sequence number that starts at 1 for every run, so traces can be
// compared byte for byte against golden files.
//
// # Scenario Format
//
//	name: sum_to_ten
//	description: "sum(n) adds 1..n"
//	program: sum.cue          # .cue file, CUE package dir, or .bir module
//	externals:                # optional, seeds the externals table
//	  limit: 10
//	calls:
//	  - func: sum
//	    args: [10]
//	    expect:
//	      return: 55
//	  - func: divide
//	    args: [1, 0]
//	    expect:
//	      fault: DIVISION_BY_ZERO
//	output: "hello\n"         # optional, exact stdout
//
// Program paths are relative to the scenario file. CUE programs are
// compiled, encoded and decoded again before running, so a scenario
// exercises the same path as a built module.
package harness
