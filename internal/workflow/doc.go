// Package workflow holds the graph model submitted to the execution backend:
// nodes, edges, attached documents and the result format, together with the
// rules that make a graph executable and the wire payload it serializes to.
//
// Validation runs in a fixed order and stops at the first violation:
//
//   - Node: name, uniqueness, input bindings, parallel inputs, prompt variables
//   - Edge: origin and destination references
//   - Graph: connectivity, termination at END
//   - Workflow: document shape, document references, source nodes, result format
//
// Every failure is a *ValidationError and matches ErrValidation via errors.Is.
// Nothing in this package performs I/O.
package workflow
