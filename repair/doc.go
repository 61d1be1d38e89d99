// Package repair implements the self-correcting generation loop at the
// heart of the reliability core. A Generator sends a
// conversation plus a schema-format hint to the backend, decodes and
// validates the reply, and on failure feeds the specific violations back as
// a corrective turn before retrying, up to a bounded number of attempts.
package repair
