package domain

// MessageKind selects the outbound payload shape.
type MessageKind string

const (
	MessageText    MessageKind = "text"
	MessageButtons MessageKind = "buttons"
	MessageMedia   MessageKind = "media"
)

// Media is an inline file attachment.
type Media struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimetype"`
	Name     string `json:"name"`
}

// OutboundMessage is what the dialogue asks the messaging platform to deliver.
type OutboundMessage struct {
	Kind    MessageKind
	Name    string // interactive message name, buttons only
	Text    string
	Buttons []string
	Media   *Media
}

// Text builds a plain text message.
func Text(text string) OutboundMessage {
	return OutboundMessage{Kind: MessageText, Text: text}
}

// Buttons builds an interactive reply-button message.
func Buttons(name, text string, labels ...string) OutboundMessage {
	return OutboundMessage{Kind: MessageButtons, Name: name, Text: text, Buttons: labels}
}

// Recipient addresses an outbound message.
type Recipient struct {
	ContactID string
	Number    string
}
