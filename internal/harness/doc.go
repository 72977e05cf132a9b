// Package harness provides scenario-driven conformance testing for the
// scrub pipeline.
//
// The harness loads YAML scenarios, scrubs their inputs with a
// deterministic category registry, and checks expectations about the
// output: which fields changed, which stayed, which substitutions must
// agree, and which errors a bad input must raise.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: |
//	  schema: {
//	    User: {
//	      email: string @pii(email)
//	    }
//	  }
//	record: User
//	input: '{"email": "ada@example.com"}'
//	overrides:
//	  note: free_text
//	expect:
//	  counts:
//	    email: 1
//	  changed: [email]
//	  unchanged: [note]
//	  consistent:
//	    - [people[0].ssn, people[2].ssn]
//	  distinct:
//	    - [people[0].ssn, people[1].ssn]
//	  error: CYCLIC_GRAPH
//
// schema_file may replace the inline schema; its path is resolved
// relative to the scenario file. record selects the schema record the
// input conforms to. expect.error names a code from the scrub error
// taxonomy and excludes the output expectations.
//
// # Deterministic Execution
//
// Scenarios run against testutil.DeterministicRegistry, whose
// strategies derive values from per-category counters. Combined with
// the engine's sorted-key traversal this makes output identical across
// runs, so scrubbed documents can be compared against golden files.
package harness
