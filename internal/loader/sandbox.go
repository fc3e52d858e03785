package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
)

// newSandboxedState builds a Lua state with only safe stdlib modules and
// the tibok host API. Script plugins never see io, os, or debug, and the
// load family is removed so no code can be pulled in from disk at runtime.
func newSandboxedState(ctx *Context) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for name, open := range map[string]lua.LGFunction{
		lua.BaseLibName:   lua.OpenBase,
		lua.TabLibName:    lua.OpenTable,
		lua.StringLibName: lua.OpenString,
		lua.MathLibName:   lua.OpenMath,
	} {
		L.Push(L.NewFunction(open))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}

	// OpenBase brings in the load family; strip it.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	installHostAPI(L, ctx)
	return L
}

// installHostAPI registers the tibok table. Every function consults the
// capability gate at call time, so revocations apply immediately.
func installHostAPI(L *lua.LState, ctx *Context) {
	api := L.NewTable()
	L.SetFuncs(api, map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			ctx.Logger().Info(L.CheckString(1))
			return 0
		},
		"has_permission": func(L *lua.LState) int {
			p, ok := permission.Parse(L.CheckString(1))
			L.Push(lua.LBool(ok && ctx.Can(p)))
			return 1
		},
		"notify": func(L *lua.LState) int {
			if err := ctx.Notify(L.CheckString(1)); err != nil {
				L.RaiseError("%s", err)
			}
			return 0
		},
		"get_content": func(L *lua.LState) int {
			content, err := ctx.EditorContent()
			if err != nil {
				L.RaiseError("%s", err)
			}
			L.Push(lua.LString(content))
			return 1
		},
		"set_content": func(L *lua.LState) int {
			if err := ctx.SetEditorContent(L.CheckString(1)); err != nil {
				L.RaiseError("%s", err)
			}
			return 0
		},
	})
	L.SetGlobal("tibok", api)
}
