// Package plan holds the pure decision core of vopt: orientation resolution
// and transform planning. Both functions are total and deterministic, with no
// I/O, so the batch orchestrator and its tests can exercise every sizing rule
// directly.
package plan
