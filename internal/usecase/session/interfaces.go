package session

import (
	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/formatter"
)

// FormatterFactory resolves a transcript formatter for an export format
type FormatterFactory interface {
	Create(format entity.ResultFormat) (formatter.Formatter, error)
}
