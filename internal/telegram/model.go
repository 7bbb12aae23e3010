package telegram

type Chat struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}
