// Package fallback implements an ordered chain of progressively degraded
// result producers, the last line of defense when the whole primary
// extraction path has failed.
package fallback
