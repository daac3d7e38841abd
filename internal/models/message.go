package models

// GatewayEvent is the envelope the WhatsApp gateway publishes to Kafka.
type GatewayEvent struct {
	Pattern string      `json:"pattern"`
	Data    ChatMessage `json:"data"`
}

// ChatMessage is a single inbound WhatsApp message as delivered by the
// gateway, either through Kafka or through the webhook endpoint.
type ChatMessage struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Phone    string `json:"phone" validate:"required"`
	Group    string `json:"group,omitempty"`
	FromMe   bool   `json:"from_me,omitempty"`
	Data     string `json:"data,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// Destination returns the address replies should go to: the group when the
// message came from one, the sender otherwise.
func (m *ChatMessage) Destination() string {
	if m.Group != "" {
		return m.Group
	}
	return m.Phone
}

// IsImage reports whether the message carries an image payload.
func (m *ChatMessage) IsImage() bool {
	return m.Type == "image" && m.Data != ""
}
