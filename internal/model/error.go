package model

// AppError is the structured error payload carried by every failure in the
// generation pipeline. Per-link and per-source errors are collected into the
// run report instead of being thrown upward; only mapping-stage and
// assembly-stage errors abort a run.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage"`

	Source  string `json:"source,omitempty"`  // subscription tag or file path
	Line    int    `json:"line,omitempty"`    // 1-based; 0 means "not set"
	Snippet string `json:"snippet,omitempty"` // <= 200 chars
	Hint    string `json:"hint,omitempty"`
}

// Error codes, one per failure class.
const (
	CodeFetchTimeout        = "FETCH_TIMEOUT"
	CodeFetchFailed         = "FETCH_FAILED"
	CodeReadError           = "READ_ERROR"
	CodeUnrecognizedFormat  = "UNRECOGNIZED_FORMAT"
	CodeUnsupportedProtocol = "UNSUPPORTED_PROTOCOL"
	CodeMalformedLink       = "MALFORMED_LINK"
	CodePortConflict        = "PORT_CONFLICT"
	CodePortRangeExceeded   = "PORT_RANGE_EXCEEDED"
	CodeEmptyNodeSet        = "EMPTY_NODE_SET"
	CodeTemplateError       = "TEMPLATE_ERROR"
)
