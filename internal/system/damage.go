package system

import (
	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/geom"
	"github.com/l1jgo/horde/internal/scripting"
	"github.com/l1jgo/horde/internal/world"
)

// DamageFormula computes hit damage. *scripting.Engine implements it.
type DamageFormula interface {
	CalcAgentDamage(ctx scripting.DamageContext) int
}

// ScriptedDamage is the ai.DamageModel that asks the damage formula with the
// target's health and the current game day.
type ScriptedDamage struct {
	formula DamageFormula
	world   *world.State
	day     int
}

var _ ai.DamageModel = (*ScriptedDamage)(nil)

func NewScriptedDamage(formula DamageFormula, ws *world.State) *ScriptedDamage {
	return &ScriptedDamage{formula: formula, world: ws}
}

func (d *ScriptedDamage) SetDay(n int) { d.day = n }

func (d *ScriptedDamage) Damage(a *ai.Agent, target ecs.EntityID) int {
	ctx := scripting.DamageContext{
		Archetype:  a.Archetype,
		BaseDamage: a.Tuning.BaseDamage,
		Ranged:     a.Tuning.Ranged,
		Day:        d.day,
	}
	if pos, ok := d.world.Position(target); ok {
		ctx.Distance = geom.PlanarDistance(a.Position, pos)
	}
	if hp, maxHP, ok := d.world.HealthOf(target); ok {
		ctx.TargetHP, ctx.TargetMaxHP = hp, maxHP
	}
	return d.formula.CalcAgentDamage(ctx)
}
