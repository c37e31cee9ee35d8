package jobs

import (
	"time"

	"github.com/rs/zerolog"

	"owatch/internal/services"
)

// StakingAccrual periodically credits daily rewards to flexible staking
// positions
type StakingAccrual struct {
	stakingService *services.StakingService
	interval       time.Duration
	logger         zerolog.Logger
	stopChan       chan struct{}
}

// NewStakingAccrual creates a new staking accrual job
func NewStakingAccrual(stakingService *services.StakingService, interval time.Duration, logger zerolog.Logger) *StakingAccrual {
	return &StakingAccrual{
		stakingService: stakingService,
		interval:       interval,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the accrual loop
func (sa *StakingAccrual) Start() {
	sa.logger.Info().Dur("interval", sa.interval).Msg("staking accrual job started")

	ticker := time.NewTicker(sa.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sa.accrue()
		case <-sa.stopChan:
			sa.logger.Info().Msg("staking accrual job stopped")
			return
		}
	}
}

// Stop stops the accrual loop
func (sa *StakingAccrual) Stop() {
	close(sa.stopChan)
}

func (sa *StakingAccrual) accrue() {
	updated, err := sa.stakingService.AccrueFlexibleRewards()
	if err != nil {
		sa.logger.Error().Err(err).Msg("staking accrual run failed")
		return
	}
	if updated > 0 {
		sa.logger.Info().Int64("positions", updated).Msg("staking rewards accrued")
	}
}
