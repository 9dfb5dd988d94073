package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/rpgcombat/internal/game/dice"
	"github.com/cory-johannsen/rpgcombat/internal/scripting"
)

func newTestManager(t require.TestingT) (*scripting.Manager, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(7), logger)
	return scripting.NewManager(roller, logger), logs
}

func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func warnings(logs *observer.ObservedLogs) int {
	return logs.FilterLevelExact(zap.WarnLevel).Len()
}

func TestManager_Load_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	defer mgr.Close()
	dir := writeScripts(t, map[string]string{"hooks.lua": `
		function add(a, b)
			return a + b
		end
	`})
	require.NoError(t, mgr.Load(dir, 0))
	ret, err := mgr.CallHook("add", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_Load_FilesRunInLexicalOrder(t *testing.T) {
	mgr, _ := newTestManager(t)
	defer mgr.Close()
	dir := writeScripts(t, map[string]string{
		"b.lua":      `order = order .. "b"`,
		"a.lua":      `order = "a"`,
		"notes.txt":  `this is not lua`,
		"c_last.lua": `function get() return order end`,
	})
	require.NoError(t, mgr.Load(dir, 0))
	ret, err := mgr.CallHook("get")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("ab"), ret)
}

func TestManager_CallHook_MissingHookOrVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret, err := mgr.CallHook("on_hit")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret, "no VM loaded")

	require.NoError(t, mgr.Load(writeScripts(t, map[string]string{"empty.lua": `-- nothing`}), 0))
	defer mgr.Close()
	ret, err = mgr.CallHook("nonexistent")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeErrorIsLogged(t *testing.T) {
	mgr, logs := newTestManager(t)
	defer mgr.Close()
	require.NoError(t, mgr.Load(writeScripts(t, map[string]string{"bad.lua": `
		function bad() error("intentional") end
	`}), 0))
	ret, err := mgr.CallHook("bad")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, warnings(logs))
}

func TestManager_CallHook_BudgetIsPerCall(t *testing.T) {
	mgr, logs := newTestManager(t)
	defer mgr.Close()
	require.NoError(t, mgr.Load(writeScripts(t, map[string]string{"loop.lua": `
		calls = 0
		function work()
			local n = 0
			for i = 1, 100 do n = n + i end
			calls = calls + 1
			return calls
		end
		function spin() while true do end end
	`}), 1000))

	var ret lua.LValue
	for i := 0; i < 50; i++ {
		var err error
		ret, err = mgr.CallHook("work")
		require.NoError(t, err)
	}
	assert.Equal(t, lua.LNumber(50), ret)
	assert.Equal(t, 0, warnings(logs))

	ret, err := mgr.CallHook("spin")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, warnings(logs))
}

func TestManager_Load_FailureKeepsPreviousVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	defer mgr.Close()
	require.NoError(t, mgr.Load(writeScripts(t, map[string]string{"ok.lua": `function v() return 1 end`}), 0))

	err := mgr.Load(writeScripts(t, map[string]string{"broken.lua": `function (`}), 0)
	require.Error(t, err)
	ret, err := mgr.CallHook("v")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1), ret)

	assert.Error(t, mgr.Load(filepath.Join(t.TempDir(), "missing"), 0))
}

func TestPropertyManager_CallHookReturnsScriptResult(t *testing.T) {
	mgr, _ := newTestManager(t)
	defer mgr.Close()
	require.NoError(t, mgr.Load(writeScripts(t, map[string]string{"add.lua": `
		function add(a, b) return a + b end
	`}), 0))
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(-1_000_000, 1_000_000).Draw(rt, "a")
		b := rapid.IntRange(-1_000_000, 1_000_000).Draw(rt, "b")
		ret, err := mgr.CallHook("add", lua.LNumber(a), lua.LNumber(b))
		require.NoError(rt, err)
		assert.Equal(rt, lua.LNumber(a+b), ret)
	})
}
