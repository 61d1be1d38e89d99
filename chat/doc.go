// Package chat defines the conversational data model shared by all
// generation components: roles, turns and the append-only Conversation
// value threaded through repair loops.
package chat
