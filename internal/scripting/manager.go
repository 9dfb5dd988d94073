package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/combat"
	"github.com/cory-johannsen/rpgcombat/internal/game/dice"
	"github.com/cory-johannsen/rpgcombat/internal/game/engine"
	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
	"github.com/cory-johannsen/rpgcombat/internal/game/status"
)

// Hook names looked up as Lua globals.
const (
	HookOnHit  = "on_hit"
	HookOnKill = "on_kill"
)

var _ engine.Hooks = (*Manager)(nil)

// Host is the slice of the combat Context that scripts may act through.
// Direct damage is deliberately absent so that on_hit cannot recurse.
type Host interface {
	Profile(id string) (*profile.Profile, bool)
	Heal(ev engine.HealEvent) float64
	AddStatus(entity string, t status.Type, stacks, duration int) error
	ClearStatus(entity string, t status.Type) bool
	AddBuff(entity string, id attribute.ID, magnitude float64, duration int) error
	Attribute(entity string, id attribute.ID) float64
	Status(entity string, t status.Type) int
}

// Manager owns the sandboxed script VM and dispatches combat hooks into it.
//
// Hooks run on the tick loop goroutine; the mutex only guards against Load
// racing a hook during startup or reload.
type Manager struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	host   Host
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{roller: roller, logger: logger}
}

// SetHost installs the combat Context scripts act through. A nil host turns
// every engine.* call into a no-op.
//
// Precondition: called before any hook runs.
func (m *Manager) SetHost(h Host) { m.host = h }

// Load creates a fresh VM, registers the engine module, then executes every
// *.lua file in scriptDir in lexicographic order. A previously loaded VM is
// replaced only when every file loads.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: returns an error on read or Lua load failure and keeps the old VM.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState()
	m.RegisterModules(L)
	for _, path := range luaFiles {
		err := WithBudget(L, instLimit, func() error { return L.DoFile(path) })
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	old := m.L
	m.L = L
	m.limit = instLimit
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
	m.logger.Info("scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// Close releases the VM. The Manager may be loaded again afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}

// CallHook calls the named Lua global function. Returns (LNil, nil) if no VM
// is loaded or the hook is not defined. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return lua.LNil, nil
	}
	L := m.L
	fn := L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	ret := lua.LValue(lua.LNil)
	err := WithBudget(L, m.limit, func() error {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	return ret, nil
}

// OnHit calls on_hit(hit) where hit describes the event and its resolution.
func (m *Manager) OnHit(ev combat.DamageEvent, res combat.Result) {
	m.mu.Lock()
	L := m.L
	m.mu.Unlock()
	if L == nil {
		return
	}
	hit := L.NewTable()
	hit.RawSetString("id", lua.LString(res.EventID))
	hit.RawSetString("cause", lua.LString(ev.Cause))
	hit.RawSetString("amount", lua.LNumber(ev.Amount))
	hit.RawSetString("attacker", lua.LString(ev.Attacker))
	hit.RawSetString("defender", lua.LString(ev.Defender))
	hit.RawSetString("outcome", lua.LString(res.Outcome.String()))
	hit.RawSetString("final", lua.LNumber(res.Final))
	hit.RawSetString("critical", lua.LBool(res.Critical))
	hit.RawSetString("defender_health", lua.LNumber(res.DefenderHealth))
	_, _ = m.CallHook(HookOnHit, hit)
}

// OnKill calls on_kill(killed, killer). killer is the empty string when the
// death had no killer.
func (m *Manager) OnKill(killed, killer string) {
	_, _ = m.CallHook(HookOnKill, lua.LString(killed), lua.LString(killer))
}
