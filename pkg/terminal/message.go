package terminal

// Message types on the terminal websocket.
const (
	// Client to server.
	MessageInput  = "input"
	MessageResize = "resize"

	// Server to client.
	MessageConnected = "connected"
	MessageOutput    = "output"
	MessageError     = "error"
)

// Message is the JSON envelope both directions of the terminal socket
// speak. Data carries raw terminal bytes for input and output frames;
// Cols and Rows ride on resize frames; Message explains error frames.
type Message struct {
	Type    string `json:"type"`
	Data    string `json:"data,omitempty"`
	Cols    int    `json:"cols,omitempty"`
	Rows    int    `json:"rows,omitempty"`
	Message string `json:"message,omitempty"`
}
