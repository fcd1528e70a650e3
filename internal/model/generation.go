package model

// QuestionTranscript is one answered prompt sent along with a generation request
type QuestionTranscript struct {
	Index      int    `json:"index" validate:"min=0"`
	Prompt     string `json:"prompt"`
	Transcript string `json:"transcript"`
}

// GenerateRequest is the request body for generating alternatives
type GenerateRequest struct {
	QuestionIndex int                  `json:"questionIndex" validate:"min=0"`
	Text          string               `json:"text" validate:"required_without=Questions"`
	Questions     []QuestionTranscript `json:"questions,omitempty" validate:"omitempty,dive"`
	WeeklyPlan    string               `json:"weeklyPlan,omitempty"` // Opaque context
	AllowFallback bool                 `json:"allowFallback"`
}

// RatingRequest is the request body for rating one alternative
type RatingRequest struct {
	Rating int `json:"rating"`
}

// SelectionRequest is the request body for selecting an alternative
type SelectionRequest struct {
	Index *int `json:"index" validate:"required"`
}
