package model

import "time"

// Participant holds per-user study configuration
type Participant struct {
	ID        string    `json:"id" bson:"_id"`
	Condition string    `json:"condition" bson:"condition"` // Study arm label
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ConditionView is returned to the client. Source is "cache" or "store".
type ConditionView struct {
	UserID    string `json:"userId"`
	Condition string `json:"condition"`
	Source    string `json:"source"`
}
