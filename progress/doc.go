// Package progress keeps aggregated counters for a sequenced task queue so that
// embedding applications can render how many tasks are waiting, running and
// finished without inspecting queue internals.
package progress
