package calendars

import "time"

// DefaultWeeks is how many past weeks a new feed covers, including the current one.
const DefaultWeeks = 4

type Calendar struct {
	ID        string    `json:"id"`
	Weeks     int       `json:"weeks"`
	CreatedAt time.Time `json:"created_at"`
}
