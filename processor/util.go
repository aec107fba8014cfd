package processor

import (
	lua "github.com/yuin/gopher-lua"
)

func luaTableToMap(table *lua.LTable) map[string]any {
	res := make(map[string]any)
	table.ForEach(func(key, value lua.LValue) {
		// Keys are usually strings already; numeric keys are stringified.
		res[key.String()] = convertLuaValue(value)
	})
	return res
}

func convertLuaValue(value lua.LValue) any {
	switch v := value.(type) {
	case *lua.LTable:
		if n := v.MaxN(); n > 0 && n == countEntries(v) {
			items := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				items = append(items, convertLuaValue(v.RawGetInt(i)))
			}
			return items
		}
		return luaTableToMap(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case lua.LBool:
		return bool(v)
	case *lua.LNilType:
		return nil
	default:
		// Functions and userdata have no record representation.
		return v.String()
	}
}

func countEntries(t *lua.LTable) int {
	n := 0
	t.ForEach(func(lua.LValue, lua.LValue) { n++ })
	return n
}

func mapToLuaTable(L *lua.LState, m map[string]any) *lua.LTable {
	t := L.CreateTable(0, len(m))
	for k, v := range m {
		t.RawSetString(k, toLuaValue(L, v))
	}
	return t
}

func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case float64:
		return lua.LNumber(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case []any:
		t := L.CreateTable(len(v), 0)
		for _, item := range v {
			t.Append(toLuaValue(L, item))
		}
		return t
	case map[string]any:
		return mapToLuaTable(L, v)
	default:
		return lua.LNil
	}
}
