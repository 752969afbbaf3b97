package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatTurn is one entry of the grounded conversation transcript.
// Turns are append-only; transcript order is conversational order.
type ChatTurn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
