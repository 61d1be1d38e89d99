// Package intent provides closed-set intent classification over a
// generative backend and deterministic routing on the classified label.
package intent
