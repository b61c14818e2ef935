// Package harness runs list scenarios against a Redis server and checks
// their outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	key: redis:key
//	initial: [Cat, Dog, Home]
//	steps:
//	  - op: remove_at
//	    index: 2
//	    expect:
//	      result: Home
//	  - op: get
//	    index: 9
//	    expect:
//	      error: out_of_range
//	assertions:
//	  - type: final_state
//	    values: [Cat, Dog]
//	  - type: mod_count
//	    count: 1
//
// # Assertion Types
//
//   - trace_contains: an operation appears in the trace
//   - trace_order: operations appear in the given order
//   - trace_count: an operation appears exactly N times
//   - final_state: the list holds exactly the given values afterwards
//   - mod_count: the adapter's modification count afterwards
//
// # Deterministic Testing
//
// Sentinel and scratch tokens come from a sequence generator and each step
// is numbered, so the trace of a scenario is identical across runs and can
// be compared with a golden file (see AssertGolden).
package harness
