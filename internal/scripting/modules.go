package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/engine"
	"github.com/cory-johannsen/rpgcombat/internal/game/status"
)

// RegisterModules defines the engine table in L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"health":       m.luaHealth,
		"attribute":    m.luaAttribute,
		"status":       m.luaStatus,
		"add_status":   m.luaAddStatus,
		"clear_status": m.luaClearStatus,
		"add_buff":     m.luaAddBuff,
		"heal":         m.luaHeal,
		"chance":       m.luaChance,
		"log":          m.luaLog,
	})
	L.SetGlobal("engine", mod)
}

func checkStatus(L *lua.LState, n int) status.Type {
	t, err := status.Parse(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return t
}

func checkAttribute(L *lua.LState, n int) attribute.ID {
	id, err := attribute.Parse(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return id
}

// engine.health(id) -> current, max | nil
func (m *Manager) luaHealth(L *lua.LState) int {
	id := L.CheckString(1)
	if m.host == nil {
		L.Push(lua.LNil)
		return 1
	}
	p, ok := m.host.Profile(id)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(p.Health.Current))
	L.Push(lua.LNumber(p.Health.Max))
	return 2
}

// engine.attribute(id, attr) -> number
func (m *Manager) luaAttribute(L *lua.LState) int {
	id := L.CheckString(1)
	attr := checkAttribute(L, 2)
	if m.host == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(m.host.Attribute(id, attr)))
	return 1
}

// engine.status(id, type) -> stacks
func (m *Manager) luaStatus(L *lua.LState) int {
	id := L.CheckString(1)
	t := checkStatus(L, 2)
	if m.host == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(m.host.Status(id, t)))
	return 1
}

// engine.add_status(id, type, stacks, duration) -> true | false, err
func (m *Manager) luaAddStatus(L *lua.LState) int {
	id := L.CheckString(1)
	t := checkStatus(L, 2)
	stacks := L.CheckInt(3)
	duration := L.CheckInt(4)
	if m.host == nil {
		L.Push(lua.LFalse)
		return 1
	}
	if err := m.host.AddStatus(id, t, stacks, duration); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// engine.clear_status(id, type) -> bool
func (m *Manager) luaClearStatus(L *lua.LState) int {
	id := L.CheckString(1)
	t := checkStatus(L, 2)
	if m.host == nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(m.host.ClearStatus(id, t)))
	return 1
}

// engine.add_buff(id, attr, magnitude, duration) -> true | false, err
func (m *Manager) luaAddBuff(L *lua.LState) int {
	id := L.CheckString(1)
	attr := checkAttribute(L, 2)
	magnitude := float64(L.CheckNumber(3))
	duration := L.CheckInt(4)
	if m.host == nil {
		L.Push(lua.LFalse)
		return 1
	}
	if err := m.host.AddBuff(id, attr, magnitude, duration); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// engine.heal(id, amount) -> healed
func (m *Manager) luaHeal(L *lua.LState) int {
	id := L.CheckString(1)
	amount := float64(L.CheckNumber(2))
	if m.host == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(m.host.Heal(engine.HealEvent{Target: id, Amount: amount})))
	return 1
}

// engine.chance(purpose, percent) -> bool
func (m *Manager) luaChance(L *lua.LState) int {
	purpose := L.CheckString(1)
	chance := float64(L.CheckNumber(2))
	L.Push(lua.LBool(m.roller.Chance("script:"+purpose, chance)))
	return 1
}

// engine.log(msg)
func (m *Manager) luaLog(L *lua.LState) int {
	m.logger.Info("script", zap.String("msg", L.CheckString(1)))
	return 0
}
