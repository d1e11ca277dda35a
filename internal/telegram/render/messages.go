package render

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/futig/nelson-backend/internal/entity"
)

// MaxMessageLength is the Telegram limit for one text message, in characters.
const MaxMessageLength = 4096

const (
	// Welcome messages
	MsgWelcome = `👋 Hi! I answer pediatric questions using the %s.

Just send me a question, for example:
• What is the first-line treatment for Kawasaki disease?
• How is bronchiolitis managed in infants?

Every answer lists the chapters it is based on. I am a reference tool, not a substitute for a clinician.`

	MsgHelp = `🤖 Commands:

/new - Start a new conversation
/export - Download this conversation (markdown, pdf or docx)
/help - Show this help

Ask follow-up questions in the same conversation, I keep the last few turns as context.`

	MsgNewSession = "🆕 New conversation started. Ask your question."

	MsgExportPreparing = "📄 Preparing the transcript..."

	MsgNothingToExport = "There is nothing to export yet. Ask a question first."

	// Progress
	MsgProgressConnecting = "🔌 Connecting to the knowledge base..."
	MsgProgressAnalyzing  = "🧠 Analyzing your question..."
	MsgProgressSearching  = "📚 Searching the textbook..."
	MsgProgressGenerating = "✍️ Writing the answer..."

	// Error messages
	ErrGeneric         = "❌ Something went wrong. Please try again."
	ErrTimeout         = "⏱ The request took too long. Please try again."
	ErrNetworkIssue    = "🌐 Network problem. Please try again in a moment."
	ErrSessionNotFound = "❌ Conversation not found. Send /new to start a new one."
	ErrUnknownCommand  = "❌ Unknown command. Send /help for the list of commands."
	ErrUnsupported     = "I can only read text messages. Please type your question."
	ErrInvalidFormat   = "❌ Unknown format. Use /export markdown, /export pdf or /export docx."
	ErrExportFailed    = "❌ Could not prepare the transcript. Please try again."
)

// Welcome renders the greeting for the configured corpus.
func Welcome(corpus entity.Corpus) string {
	return fmt.Sprintf(MsgWelcome, corpus.Name)
}

// Progress maps a pipeline progress marker to a status line.
func Progress(marker string) string {
	switch marker {
	case "connecting":
		return MsgProgressConnecting
	case "analyzing":
		return MsgProgressAnalyzing
	case "searching":
		return MsgProgressSearching
	case "generating":
		return MsgProgressGenerating
	default:
		return "⏳ " + marker
	}
}

// Answer renders the final answer with its sources and confidence.
func Answer(answer *entity.GeneratedAnswer) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(answer.Content))

	if len(answer.Citations) > 0 {
		sb.WriteString("\n\n📚 Sources:")
		for i, c := range answer.Citations {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, citation(c))
		}
	}

	if answer.Outcome != entity.OutcomeRejected {
		fmt.Fprintf(&sb, "\n\n%s", confidenceLine(answer.Confidence))
	}
	return sb.String()
}

func citation(c entity.Citation) string {
	line := c.Chapter
	if c.Section != "" {
		line += ", " + c.Section
	}
	if c.Page != nil {
		line += fmt.Sprintf(", p. %d", *c.Page)
	}
	return line
}

func confidenceLine(c entity.Confidence) string {
	switch c {
	case entity.ConfidenceHigh:
		return "🟢 Confidence: high"
	case entity.ConfidenceMedium:
		return "🟡 Confidence: medium"
	default:
		return "🔴 Confidence: low"
	}
}

// Split cuts text into parts of at most limit characters, preferring to
// break at a newline, then at a space.
func Split(text string, limit int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		cut := limit
		head := string(runes[:limit])
		if i := strings.LastIndex(head, "\n"); i > 0 {
			cut = utf8.RuneCountInString(head[:i])
		} else if i := strings.LastIndex(head, " "); i > 0 {
			cut = utf8.RuneCountInString(head[:i])
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), " \n"))
		text = strings.TrimLeft(string(runes[cut:]), " \n")
	}
	if text != "" || len(parts) == 0 {
		parts = append(parts, text)
	}
	return parts
}

// ClassifyError analyzes an error and returns an appropriate user-friendly message
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ErrGeneric
	case errors.Is(err, entity.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, entity.ErrInvalidFormat):
		return ErrInvalidFormat
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetworkIssue
	}

	return ErrGeneric
}
