// Package circuit models the static set of proof circuits a run can execute:
// their artifact locations, the dependency edges between them and the
// transforms that feed one circuit's public outputs into the next circuit's
// inputs. It also resolves a deterministic execution order from those edges.
//
// A Graph is immutable once built. Descriptors are registered in a fixed
// order and every traversal in this package walks them in that order, so the
// same configuration always produces the same execution order.
package circuit
