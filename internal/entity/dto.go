package entity

type AskRequest struct {
	Query     string        `json:"query"`
	SessionID *string       `json:"session_id,omitempty"`
	History   []Turn        `json:"history,omitempty"`
	Config    *RAGOverrides `json:"config,omitempty"`
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type ChapterChunksResponse struct {
	Chapter string              `json:"chapter"`
	Chunks  []RetrievedDocument `json:"chunks"`
}

type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}
