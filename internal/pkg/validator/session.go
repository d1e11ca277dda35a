package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/google/uuid"
)

// Limits on per-request overrides.
const (
	maxDocumentsLimit = 20
	maxTokensLimit    = 8192
	maxTemperature    = 2
)

// ValidateAskRequest validates AskRequest
func (v *Validator) ValidateAskRequest(req *entity.AskRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("%w: query", entity.ErrMissingField)
	}
	if n := utf8.RuneCountInString(req.Query); n > v.cfg.MaxQueryLength {
		return fmt.Errorf("%w: query is %d characters (max %d)", entity.ErrInvalidParameter, n, v.cfg.MaxQueryLength)
	}

	if req.SessionID != nil {
		if err := v.ValidateSessionID(*req.SessionID); err != nil {
			return err
		}
	}

	if len(req.History) > v.cfg.MaxHistoryTurns {
		return fmt.Errorf("%w: history has %d turns (max %d)", entity.ErrInvalidParameter, len(req.History), v.cfg.MaxHistoryTurns)
	}
	for i, t := range req.History {
		if !t.Role.IsValid() {
			return fmt.Errorf("%w: history[%d].role %q", entity.ErrInvalidParameter, i, t.Role)
		}
	}

	return validateOverrides(req.Config)
}

func validateOverrides(o *entity.RAGOverrides) error {
	if o == nil {
		return nil
	}
	if o.MaxDocuments != nil && (*o.MaxDocuments < 1 || *o.MaxDocuments > maxDocumentsLimit) {
		return fmt.Errorf("%w: max_documents must be between 1 and %d", entity.ErrInvalidParameter, maxDocumentsLimit)
	}
	if o.SimilarityThreshold != nil && (*o.SimilarityThreshold < 0 || *o.SimilarityThreshold > 1) {
		return fmt.Errorf("%w: similarity_threshold must be between 0 and 1", entity.ErrInvalidParameter)
	}
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > maxTemperature) {
		return fmt.Errorf("%w: temperature must be between 0 and %d", entity.ErrInvalidParameter, maxTemperature)
	}
	if o.MaxTokens != nil && (*o.MaxTokens < 1 || *o.MaxTokens > maxTokensLimit) {
		return fmt.Errorf("%w: max_tokens must be between 1 and %d", entity.ErrInvalidParameter, maxTokensLimit)
	}
	return nil
}

// ValidateCreateSession validates CreateSessionRequest
func (v *Validator) ValidateCreateSession(req *entity.CreateSessionRequest) error {
	if n := utf8.RuneCountInString(req.Title); n > v.cfg.MaxTitleLength {
		return fmt.Errorf("%w: title is %d characters (max %d)", entity.ErrInvalidParameter, n, v.cfg.MaxTitleLength)
	}
	return nil
}

// ValidateSessionID checks that id is a UUID
func (v *Validator) ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: session_id %q", entity.ErrInvalidFormat, id)
	}
	return nil
}

// ValidateExportFormat validates the transcript export format
func (v *Validator) ValidateExportFormat(format entity.ResultFormat) error {
	if !format.IsValid() {
		return fmt.Errorf("%w: format %q (expected markdown, pdf or docx)", entity.ErrInvalidFormat, format)
	}
	return nil
}
