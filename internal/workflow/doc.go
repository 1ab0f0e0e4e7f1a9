// Package workflow orchestrates a full mastering run from input file to
// tagged output artifact.
//
// The Runner sanitizes the input into canonical PCM, inspects it, splits it
// into fixed-length chunks, fans the chunks out to the execution unit pool,
// waits for every ticket to settle, and reassembles the mastered chunks into
// the final encoded file with metadata tags. Failures carry the chunk index
// and stage so a run that loses one chunk still reports which one and why,
// after the surviving chunks finish.
//
// Analyze is the read-only sibling of Run: it measures the whole file with
// the same filter chain the mastering passes use but writes nothing.
//
// Add new per-chunk processing by extending the pipeline package; this
// package is the authoritative home for run-level coordination only.
package workflow
