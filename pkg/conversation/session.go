package conversation

import (
	"time"

	"stylegenie/pkg/models"
)

// Session is one conversation: the funnel state plus the append-only message log.
type Session struct {
	ID        string           `json:"id"`
	State     State            `json:"state"`
	Log       []models.Message `json:"log"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func (s *Session) clone() *Session {
	c := *s
	c.Log = append([]models.Message(nil), s.Log...)
	return &c
}

// Snapshot is what the presentation layer renders after every event.
type Snapshot struct {
	ID           string              `json:"id"`
	Step         Step                `json:"step"`
	Filters      models.Filters      `json:"filters"`
	Messages     []models.Message    `json:"messages"`
	QuickReplies []models.QuickReply `json:"quickReplies"`
	InputEnabled bool                `json:"inputEnabled"`
}

// Snapshot returns the session as seen by the presentation layer. The active
// quick replies are those of the last message when it came from the assistant.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.ID,
		Step:         s.State.Step,
		Filters:      s.State.Filters,
		Messages:     append([]models.Message{}, s.Log...),
		QuickReplies: []models.QuickReply{},
		InputEnabled: s.State.Step != StepSearching,
	}
	if n := len(s.Log); n > 0 && s.Log[n-1].Role == models.RoleAssistant && s.Log[n-1].QuickReplies != nil {
		snap.QuickReplies = s.Log[n-1].QuickReplies
	}
	return snap
}
