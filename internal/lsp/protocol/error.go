package protocol

// PhpLspError is a structured {code, message} error payload. No handler in
// this server attaches it to a response: error replies are plain
// *jsonrpc2.Error values built in internal/lsp/server.go.
type PhpLspError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewLspError(message string, code string) *PhpLspError {
	return &PhpLspError{
		Code:    code,
		Message: message,
	}
}
