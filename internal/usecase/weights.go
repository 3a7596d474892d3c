package usecase

import (
	"FinCorr/internal/domain/models"
	"FinCorr/internal/services/weights"
	applogger "FinCorr/pkg/logger"
)

// WeightsUseCase completes factor weight triples.
type WeightsUseCase struct {
	l *applogger.Logger
}

func NewWeightsUseCase() *WeightsUseCase { return &WeightsUseCase{} }

// SetLogger injects a structured logger.
func (uc *WeightsUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

func (uc *WeightsUseCase) Complete(req models.FactorWeightRequest) (models.FactorWeights, error) {
	out, err := weights.CompleteFactorWeights(req)
	if err != nil {
		if uc.l != nil {
			uc.l.Warn("factor weights rejected", applogger.Error(err))
		}
		return models.FactorWeights{}, err
	}
	if uc.l != nil {
		uc.l.Debug("factor weights completed",
			applogger.String("auto_calculated", out.AutoCalculatedFactor),
			applogger.String("total", out.TotalWeight.String()),
		)
	}
	return out, nil
}

// Defaults returns the starting weights.
func (uc *WeightsUseCase) Defaults() models.FactorWeights { return weights.Defaults() }
