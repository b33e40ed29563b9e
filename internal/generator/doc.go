// Package generator produces roadmap content, phase lists and per-phase
// substeps, from a project goal using an LLM, with static defaults when the
// model is unavailable, times out, or returns something unusable.
package generator
