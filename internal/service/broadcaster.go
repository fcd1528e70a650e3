package service

// Broadcaster interface for WebSocket fan-out (avoids import cycle)
type Broadcaster interface {
	BroadcastToUser(userID string, msgType string, payload interface{})
}

// Message types pushed to a participant's open tabs
const (
	MsgCounterfactualUpdated = "counterfactual_updated"
	MsgGenerationFailed      = "generation_failed"
)

// RecordUpdate tells other tabs which record to refetch
type RecordUpdate struct {
	SessionID   string `json:"sessionId"`
	RecordingID string `json:"recordingId"`
	Revision    int64  `json:"revision"`
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToUser(string, string, interface{}) {}
