// Package session houses concrete implementations of the Store interface
// for keeping conversations across calls. Only the in-memory backend ships
// here; add durable backends (Redis, Postgres, etc.) in sub-packages without
// changing any calling code.
package session
