// Package workflow implements the Temporal workflow that renders LaTeX
// documents to stored PDFs.
//
// Workflows must stay deterministic: no random numbers, no wall-clock reads,
// no direct I/O. Compilation and storage are delegated to activities.
package workflow
