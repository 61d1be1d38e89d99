// Package testutil provides shared test doubles, most notably a scripted
// backend that replays canned replies and records the requests it receives.
package testutil
