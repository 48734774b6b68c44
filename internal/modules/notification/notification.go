package notification

// Channel names a delivery route for a logical notification.
type Channel string

const (
	ChannelPush     Channel = "push"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Notification is one logical message fanned out across the requested
// channels.
type Notification struct {
	RecipientUserID int64
	Title           string
	Body            string
	Priority        Priority
	Data            map[string]string
	Channels        []Channel
}

// Payload is the job body carried by the queued channels.
type Payload struct {
	RecipientAddress string            `json:"recipientAddress"`
	Message          string            `json:"message"`
	Priority         Priority          `json:"priority"`
	Metadata         PayloadMetadata   `json:"metadata"`
	Data             map[string]string `json:"data,omitempty"`
}

type PayloadMetadata struct {
	Type      string `json:"type"`
	BookingID string `json:"bookingId,omitempty"`
	Recipient int64  `json:"recipient"`
}
