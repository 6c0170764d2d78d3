package protocol

// CompletionList represents a list of completion items
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// InitializeParams represents the parameters for the 'initialize' request
type InitializeParams struct {
	RootPath         string            `json:"rootPath,omitempty"`
	RootURI          string            `json:"rootUri,omitempty"`
	WorkspaceFolders []WorkspaceFolder `json:"workspaceFolders,omitempty"`
}

// WorkspaceFolder represents a workspace folder
type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// CompletionParams represents the parameters for a completion request
type CompletionParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Position struct {
		Line      int `json:"line"`
		Character int `json:"character"`
	} `json:"position"`
}

// CompletionItem represents a completion item
type CompletionItem struct {
	Label         string         `json:"label"`
	Kind          int            `json:"kind"`
	Detail        string         `json:"detail,omitempty"`
	Documentation *MarkupContent `json:"documentation,omitempty"`
	// Data is echoed back unchanged on a completionItem/resolve request; this
	// server stores the candidate's FQN here (phplsp.CompletionItem.Data).
	Data string `json:"data,omitempty"`
}

// CompletionItemKind mirrors the LSP CompletionItemKind ordinals this
// server emits.
type CompletionItemKind int

const (
	CIKindClass      CompletionItemKind = 7
	CIKindInterface  CompletionItemKind = 8
	CIKindMethod     CompletionItemKind = 2
	CIKindProperty   CompletionItemKind = 10
	CIKindConstant   CompletionItemKind = 21
	CIKindVariable   CompletionItemKind = 6
	CIKindFunction   CompletionItemKind = 3
	CIKindKeyword    CompletionItemKind = 14
	CIKindEnumMember CompletionItemKind = 20
)
