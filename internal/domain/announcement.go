package domain

// Announcement is stored in posting order; the newest is last.
type Announcement struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
	Date string `json:"date"`
}
