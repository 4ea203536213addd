package advisor

import (
	"context"

	"RegimeGuard/internal/domain/models"
	domsvc "RegimeGuard/internal/domain/service"
)

// Disabled is the narrator used when no model is configured.
type Disabled struct{}

var _ domsvc.Narrator = Disabled{}

func (Disabled) Narrate(context.Context, *models.Evaluation) (string, error) { return "", nil }

func (Disabled) Enabled() bool { return false }
