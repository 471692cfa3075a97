package system

import (
	"math"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/data"
)

// NewTuning resolves an agent's parameter set from the server config and its
// archetype.
func NewTuning(cfg *config.Config, a *data.Archetype) ai.Tuning {
	return ai.Tuning{
		DetectionRange:   a.DetectionRange,
		InRangeThreshold: a.InRangeThreshold,
		ScanInterval:     cfg.Targeting.ScanInterval.Duration,
		SampleTolerance:  cfg.Targeting.SampleTolerance,
		TargetLayer:      cfg.Targeting.TargetLayer,

		MoveSpeed:       a.MoveSpeed,
		RoamRadius:      a.RoamRadius,
		RoamDelay:       cfg.Movement.RoamDelay.Duration,
		ArriveThreshold: cfg.Movement.ArriveThreshold,

		AttackCooldown: a.AttackCooldown,
		FallbackMargin: cfg.Attack.FallbackMargin.Duration,
		TurnSpeed:      cfg.Attack.TurnSpeedDeg * math.Pi / 180,
		Ranged:         a.Ranged,
		BaseDamage:     a.BaseDamage,

		RewardExp: a.RewardExp,
		DropTable: a.DropTable,

		Hit: ai.HitTuning{
			CastRadius:    cfg.Hit.CastRadius,
			OverlapRadius: cfg.Hit.OverlapRadius,
			ForwardOffset: cfg.Hit.ForwardOffset,
			OriginHeight:  cfg.Hit.OriginHeight,
			RangeSlack:    cfg.Hit.RangeSlack,
			EffectHit:     cfg.Hit.EffectIDHit,
			EffectMuzzle:  cfg.Hit.EffectIDMuzzle,
		},
	}
}
