package keyboard

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Builder creates inline keyboards
type Builder struct{}

// NewBuilder creates a keyboard builder
func NewBuilder() *Builder {
	return &Builder{}
}

// AnswerKeyboard is attached to a finished answer
func (b *Builder) AnswerKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆕 New conversation", EncodeCallback(ActionNew, "")),
			tgbotapi.NewInlineKeyboardButtonData("📄 Export", EncodeCallback(ActionExport, "pdf")),
		),
	)
}

// ExportKeyboard offers every transcript format
func (b *Builder) ExportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Markdown", EncodeCallback(ActionExport, "markdown")),
			tgbotapi.NewInlineKeyboardButtonData("📕 PDF", EncodeCallback(ActionExport, "pdf")),
			tgbotapi.NewInlineKeyboardButtonData("📘 DOCX", EncodeCallback(ActionExport, "docx")),
		),
	)
}
