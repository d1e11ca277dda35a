package validator

import (
	"github.com/futig/nelson-backend/internal/config"
)

// Validator validates incoming requests
type Validator struct {
	cfg config.ValidationConfig
}

func NewValidator(cfg config.ValidationConfig) *Validator {
	return &Validator{cfg: cfg}
}
