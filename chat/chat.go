package chat

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleSystem carries instructions that frame the whole exchange.
	RoleSystem Role = "system"
	// RoleUser carries end-user input.
	RoleUser Role = "user"
	// RoleAssistant carries backend-generated output.
	RoleAssistant Role = "assistant"
	// RoleTool carries the result of a tool invocation.
	RoleTool Role = "tool"
)

// Turn is a single (role, content) entry in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system turn.
func System(content string) Turn { return Turn{Role: RoleSystem, Content: content} }

// User builds a user turn.
func User(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// Assistant builds an assistant turn.
func Assistant(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// ToolResult builds a tool turn.
func ToolResult(content string) Turn { return Turn{Role: RoleTool, Content: content} }

// Conversation is an ordered, append-only sequence of turns. It is a value
// type: Append returns a new Conversation and never mutates the receiver's
// backing storage, so conversations can be threaded through retry loops
// without hidden aliasing between concurrent calls.
type Conversation struct {
	turns []Turn
}

// New builds a conversation from the given turns.
func New(turns ...Turn) Conversation {
	c := Conversation{turns: make([]Turn, len(turns))}
	copy(c.turns, turns)
	return c
}

// Append returns a new conversation with the given turns added at the end.
func (c Conversation) Append(turns ...Turn) Conversation {
	next := make([]Turn, 0, len(c.turns)+len(turns))
	next = append(next, c.turns...)
	next = append(next, turns...)
	return Conversation{turns: next}
}

// Turns returns a copy of the ordered turns.
func (c Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c Conversation) Len() int { return len(c.turns) }

// Last returns the most recent turn and true, or a zero turn and false when
// the conversation is empty.
func (c Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}
