// Package reconcile rebuilds parking sessions from raw gate events.
//
// Entry ("In") and exit ("Out") observations arrive as two independent,
// unordered windows. Pair matches every exit to the closest preceding entry
// of the same plate, leaves unmatched entries active and reports unmatched
// exits as failed. Adapter normalizes an already paired and face-verified
// feed into the same shape and falls back to Pair when that feed cannot be
// used. All functions are pure: each refresh recomputes the full set from the
// current window.
package reconcile
