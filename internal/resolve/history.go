package resolve

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// History keeps the most recent turns of a conversation, oldest first.
// Appending beyond capacity discards the oldest turn.
type History struct {
	capacity int
	turns    []Turn
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 5
	}
	return &History{capacity: capacity}
}

func (h *History) Append(turn Turn) {
	h.turns = append(h.turns, turn)
	if len(h.turns) > h.capacity {
		h.turns = h.turns[len(h.turns)-h.capacity:]
	}
}

// Turns returns a copy of the retained turns, oldest first.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	return len(h.turns)
}
