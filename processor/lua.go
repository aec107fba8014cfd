package processor

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/thisisjab/rulezilla/entity"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

const luaEntryPoint = "process_record"

type LuaRecordProcessorConfig struct {
	Name       string `yaml:"-"`
	ScriptPath string `yaml:"script-path"`
}

// LuaRecordProcessor decodes records with a user provided lua script.
// The script MUST define a function named `process_record(line, fields)` where
// line is the raw record and fields is a table of the fields decoded so far.
// It must return a table of fields; returning nil drops every field.
// Scripts can use the JSON helper through `local json = require("json")`.
type LuaRecordProcessor struct {
	cfg  LuaRecordProcessorConfig
	pool *sync.Pool
}

func NewLuaRecordProcessor(cfg LuaRecordProcessorConfig) (*LuaRecordProcessor, error) {
	script, err := os.ReadFile(cfg.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read lua script: %w", err)
	}

	// Compile once up front so broken scripts fail at startup instead of in the pool.
	check := newLuaState()
	defer check.Close()
	if err := check.DoString(string(script)); err != nil {
		return nil, fmt.Errorf("cannot load lua script: %w", err)
	}
	if check.GetGlobal(luaEntryPoint).Type() != lua.LTFunction {
		return nil, fmt.Errorf("lua script must define a `%s` function", luaEntryPoint)
	}

	pool := &sync.Pool{
		New: func() any {
			L := newLuaState()
			// Load the user's script once per VM in the pool.
			if err := L.DoString(string(script)); err != nil {
				panic(err)
			}
			return L
		},
	}

	return &LuaRecordProcessor{
		cfg:  cfg,
		pool: pool,
	}, nil
}

func newLuaState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // Don't load anything by default
	})

	// 'os' and 'io' are skipped to prevent system commands/file access.
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},  // Allows 'require'
		{lua.BaseLibName, lua.OpenBase},     // Allows 'print', 'pairs', etc.
		{lua.TabLibName, lua.OpenTable},     // Allows 'table.insert', etc.
		{lua.StringLibName, lua.OpenString}, // Allows string manipulation
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// local json = require("json")
	luajson.Preload(L)

	return L
}

func (lp *LuaRecordProcessor) Name() string {
	return lp.cfg.Name
}

func (lp *LuaRecordProcessor) Process(raw entity.RawRecord, fields map[string]any) (map[string]any, error) {
	L := lp.pool.Get().(*lua.LState)
	defer lp.pool.Put(L)

	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(luaEntryPoint),
		NRet:    1,
		Protect: true,
	}, lua.LString(string(raw.Data)), mapToLuaTable(L, fields))

	if err != nil {
		return nil, fmt.Errorf("lua script error: %w", err)
	}

	ret := L.Get(-1)
	// Clean up stack immediately after extraction.
	L.Pop(1)

	switch ret := ret.(type) {
	case *lua.LTable:
		return luaTableToMap(ret), nil
	case *lua.LNilType:
		return map[string]any{}, nil
	default:
		return nil, errors.New("lua script must return a table")
	}
}
