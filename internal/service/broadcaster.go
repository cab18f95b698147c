package service

// Broadcaster pushes messages to a user's live connections (implemented by
// the WebSocket hub; declared here to avoid an import cycle)
type Broadcaster interface {
	BroadcastToUser(userID string, msgType string, payload interface{})
	DisconnectUser(userID string)
}

// MsgStateChanged carries a wizard.View after every intent
const MsgStateChanged = "state_changed"
