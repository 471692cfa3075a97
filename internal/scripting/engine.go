package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/l1jgo/horde/internal/data"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for the tunable formulas: agent damage,
// drop rolls and the population curve.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log.Named("lua")}

	// core helpers first, then the formula directories
	for _, sub := range []string{"core", "combat", "loot", "population"} {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Seed seeds Lua's math.random so drop rolls repeat for a given server seed.
func (e *Engine) Seed(seed int64) error {
	fn := e.vm.GetField(e.vm.GetGlobal("math"), "randomseed")
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LNumber(seed)); err != nil {
		return fmt.Errorf("seed lua: %w", err)
	}
	return nil
}

// Has reports whether a global function is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// --- Damage Bridge ---

// DamageContext holds pre-packed data for one confirmed agent hit.
type DamageContext struct {
	Archetype   string
	BaseDamage  int
	Ranged      bool
	Distance    float64
	TargetHP    int
	TargetMaxHP int
	Day         int
}

// CalcAgentDamage calls Lua calc_agent_damage(ctx). Missing function or a
// script error falls back to the base damage.
func (e *Engine) CalcAgentDamage(ctx DamageContext) int {
	fn := e.vm.GetGlobal("calc_agent_damage")
	if fn == lua.LNil {
		return ctx.BaseDamage
	}

	t := e.vm.NewTable()
	t.RawSetString("archetype", lua.LString(ctx.Archetype))
	t.RawSetString("base_damage", lua.LNumber(ctx.BaseDamage))
	t.RawSetString("ranged", lua.LBool(ctx.Ranged))
	t.RawSetString("distance", lua.LNumber(ctx.Distance))
	t.RawSetString("target_hp", lua.LNumber(ctx.TargetHP))
	t.RawSetString("target_max_hp", lua.LNumber(ctx.TargetMaxHP))
	t.RawSetString("day", lua.LNumber(ctx.Day))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_agent_damage error", zap.Error(err))
		return ctx.BaseDamage
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua calc_agent_damage returned non-number", zap.String("type", result.Type().String()))
		return ctx.BaseDamage
	}
	if n < 0 {
		return 0
	}
	return int(n)
}

// --- Loot Bridge ---

// RollDrops calls Lua roll_drops(items, day) and returns the rolled stacks.
// Items with a zero count are dropped from the result.
func (e *Engine) RollDrops(items []data.DropItem, day int) []data.Drop {
	if len(items) == 0 {
		return nil
	}
	fn := e.vm.GetGlobal("roll_drops")
	if fn == lua.LNil {
		e.log.Error("lua function roll_drops not found")
		return nil
	}

	list := e.vm.NewTable()
	for _, it := range items {
		row := e.vm.NewTable()
		row.RawSetString("item_id", lua.LNumber(it.ItemID))
		row.RawSetString("min", lua.LNumber(it.Min))
		row.RawSetString("max", lua.LNumber(it.Max))
		row.RawSetString("chance", lua.LNumber(it.Chance))
		list.Append(row)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, list, lua.LNumber(day)); err != nil {
		e.log.Error("lua roll_drops error", zap.Error(err))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []data.Drop
	for i := 1; i <= rt.Len(); i++ {
		row, ok := rt.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue
		}
		d := data.Drop{ItemID: int32(lInt(row, "item_id")), Count: lInt(row, "count")}
		if d.Count > 0 {
			out = append(out, d)
		}
	}
	return out
}

// --- Population Bridge ---

// PopulationForDay calls Lua population_for_day(base, per_day, day).
func (e *Engine) PopulationForDay(base int, perDay float64, day int) (int, error) {
	fn := e.vm.GetGlobal("population_for_day")
	if fn == lua.LNil {
		return 0, fmt.Errorf("lua function population_for_day not found")
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(base), lua.LNumber(perDay), lua.LNumber(day)); err != nil {
		return 0, fmt.Errorf("population_for_day: %w", err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok || math.IsNaN(float64(n)) {
		return 0, fmt.Errorf("population_for_day returned %s", result.Type())
	}
	return int(n), nil
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
