// Package junk scores messages against heuristic spam patterns.
//
// Scoring is purely additive over a PatternSet plus two structural signals
// (capital-letter ratio and exclamation density). The score maps to a
// likelihood band; the classifier keeps no per-message state and never talks
// to the network, so it can run over fetched batches of any size.
package junk
