package leads

import "time"

// Lead statuses recognized by the webhook pipeline. The admin UI owns
// the rest of the lifecycle; human-handled is terminal from our side.
const (
	StatusNew          = "new"
	StatusAwaiting     = "awaiting"
	StatusHumanHandled = "human-handled"
)

// Lead represents a prospective-customer contact keyed by phone number.
type Lead struct {
	ID            string    `json:"id"`
	Phone         string    `json:"phone"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	Source        string    `json:"source"`
	NeedsHuman    bool      `json:"needs_human"`
	LastContactAt time.Time `json:"last_contact_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateLeadRequest represents the fields needed to create a lead.
type CreateLeadRequest struct {
	Phone  string
	Name   string
	Source string
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if r.Phone == "" {
		return ErrMissingPhone
	}
	return nil
}
