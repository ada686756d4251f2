package assistant

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of the dialogue history sent to the AI backend.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the append-only turn log. It lives for the whole process
// and survives sleep/wake cycles.
type Conversation struct {
	turns []Turn
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Append records one exchange as a (user, assistant) pair.
func (c *Conversation) Append(user, reply string) {
	c.turns = append(c.turns,
		Turn{Role: RoleUser, Content: user},
		Turn{Role: RoleAssistant, Content: reply},
	)
}

// Turns returns a copy of the history.
func (c *Conversation) Turns() []Turn {
	return append([]Turn(nil), c.turns...)
}

func (c *Conversation) Len() int {
	return len(c.turns)
}

// State is the cross-turn state owned by the dialogue loop and handed to
// the dispatcher explicitly.
type State struct {
	History *Conversation
	LastURL string
}

func NewState() *State {
	return &State{History: NewConversation()}
}
