package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/railgrid/server/internal/world"
)

// Engine wraps a single gopher-lua VM hosting user-defined rail detectors.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm     *lua.LState
	log    *zap.Logger
	region *world.Region
	types  []*ScriptRailType
}

// NewEngine creates a Lua engine and loads all rail detector scripts from
// the given directory. Scripts register detectors by calling
//
//	register_rail_type{ name=..., priority=..., is_rail=fn, find_rails=fn }
//
// at load time, and may query the bound region through get_block(x, y, z).
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	vm.SetGlobal("register_rail_type", vm.NewFunction(e.luaRegisterRailType))
	vm.SetGlobal("get_block", vm.NewFunction(e.luaGetBlock))

	if err := e.loadDir(filepath.Join(scriptsDir, "rail")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load rail scripts: %w", err)
	}

	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// BindRegion points get_block at a region. Must be called before any
// scripted detector runs.
func (e *Engine) BindRegion(r *world.Region) {
	e.region = r
}

// RailTypes returns the detectors registered by the loaded scripts, highest
// priority first.
func (e *Engine) RailTypes() []*ScriptRailType {
	sorted := append([]*ScriptRailType(nil), e.types...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority > sorted[j].priority
	})
	return sorted
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

func (e *Engine) luaRegisterRailType(L *lua.LState) int {
	tbl := L.CheckTable(1)

	name := lua.LVAsString(tbl.RawGetString("name"))
	if name == "" {
		L.RaiseError("register_rail_type: name is required")
		return 0
	}
	isRail, ok := tbl.RawGetString("is_rail").(*lua.LFunction)
	if !ok {
		L.RaiseError("register_rail_type: %s: is_rail function is required", name)
		return 0
	}
	findRails, ok := tbl.RawGetString("find_rails").(*lua.LFunction)
	if !ok {
		L.RaiseError("register_rail_type: %s: find_rails function is required", name)
		return 0
	}
	priority := int(lua.LVAsNumber(tbl.RawGetString("priority")))

	e.types = append(e.types, &ScriptRailType{
		engine:    e,
		name:      name,
		priority:  priority,
		isRail:    isRail,
		findRails: findRails,
	})
	e.log.Debug("registered scripted rail type",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
	return 0
}

func (e *Engine) luaGetBlock(L *lua.LState) int {
	x := L.CheckInt(1)
	y := L.CheckInt(2)
	z := L.CheckInt(3)
	if e.region == nil {
		L.Push(lua.LString(""))
		return 1
	}
	L.Push(lua.LString(e.region.BlockAt(world.Vec3{X: x, Y: y, Z: z})))
	return 1
}

// call invokes a detector function with a block coordinate. A Lua runtime
// error is raised as a panic so the rail registry's fault isolation reports
// it without aborting the detector scan.
func (e *Engine) call(fn *lua.LFunction, pos world.Vec3) lua.LValue {
	err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(pos.X), lua.LNumber(pos.Y), lua.LNumber(pos.Z))
	if err != nil {
		panic(err)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return ret
}

// ScriptRailType adapts one Lua-defined detector to the rail type
// interface.
type ScriptRailType struct {
	engine    *Engine
	name      string
	priority  int
	isRail    *lua.LFunction
	findRails *lua.LFunction
}

func (t *ScriptRailType) Name() string { return t.name }

func (t *ScriptRailType) Priority() int { return t.priority }

func (t *ScriptRailType) IsRailAt(r *world.Region, pos world.Vec3) bool {
	t.engine.region = r
	return lua.LVAsBool(t.engine.call(t.isRail, pos))
}

func (t *ScriptRailType) FindRails(r *world.Region, pos world.Vec3) []world.Vec3 {
	t.engine.region = r
	ret := t.engine.call(t.findRails, pos)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil
	}

	var rails []world.Vec3
	n := tbl.Len()
	for i := 1; i <= n; i++ {
		entry, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			panic(fmt.Errorf("rail type %s: find_rails entry %d is not a table", t.name, i))
		}
		rails = append(rails, world.Vec3{
			X: int(lua.LVAsNumber(entry.RawGetString("x"))),
			Y: int(lua.LVAsNumber(entry.RawGetString("y"))),
			Z: int(lua.LVAsNumber(entry.RawGetString("z"))),
		})
	}
	return rails
}
