package rail

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/railgrid/server/internal/world"
)

// RailType is a pluggable track detector. Implementations answer whether a
// block hosts their kind of track, and which rail blocks control movement
// through a given position block.
//
// Both methods must be pure with respect to the region: repeated calls with
// the same state return the same result. A panicking implementation is
// isolated by the Registry and never aborts a scan.
type RailType interface {
	Name() string

	// IsRailAt reports whether a rail of this type exists at pos.
	IsRailAt(r *world.Region, pos world.Vec3) bool

	// FindRails returns the rail blocks of this type that control movement
	// through the given position block. Order is significant and preserved
	// into the cached at-position result. Empty means "not mine".
	FindRails(r *world.Region, pos world.Vec3) []world.Vec3
}

// noneType is the sentinel for "no detected rail here". It never matches.
type noneType struct{}

func (noneType) Name() string { return "none" }

func (noneType) IsRailAt(*world.Region, world.Vec3) bool { return false }

func (noneType) FindRails(*world.Region, world.Vec3) []world.Vec3 { return nil }

// TypeNone marks cache entries created for positions where no rail was
// detected (yet). Compared by identity.
var TypeNone RailType = noneType{}

// FaultHandler receives errors recovered from a misbehaving rail type.
type FaultHandler func(t RailType, err error)

// Registry holds all registered rail types in priority order: during
// discovery the first type producing a non-empty result wins.
type Registry struct {
	types   []RailType
	onFault FaultHandler
	log     *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log}
}

// Register appends a rail type. Registration order is priority order.
func (reg *Registry) Register(t RailType) {
	reg.types = append(reg.types, t)
}

// SetFaultHandler installs a callback invoked whenever a rail type panics.
// Faults are always logged; the handler is for additional reporting.
func (reg *Registry) SetFaultHandler(h FaultHandler) {
	reg.onFault = h
}

// Types returns the registered rail types in priority order. The returned
// slice must not be modified.
func (reg *Registry) Types() []RailType {
	return reg.types
}

func (reg *Registry) Count() int {
	return len(reg.types)
}

func (reg *Registry) handleFault(t RailType, recovered any) {
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("%v", recovered)
	}
	reg.log.Error("rail type fault",
		zap.String("type", t.Name()),
		zap.Error(err),
	)
	if reg.onFault != nil {
		reg.onFault(t, err)
	}
}

// findRails invokes t.FindRails, converting a panic into a reported fault
// and an empty result so the scan continues with the next type.
func (reg *Registry) findRails(t RailType, r *world.Region, pos world.Vec3) (rails []world.Vec3) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.handleFault(t, rec)
			rails = nil
		}
	}()
	return t.FindRails(r, pos)
}

// isRailAt invokes t.IsRailAt with the same fault isolation as findRails.
// A faulting type reports no rail.
func (reg *Registry) isRailAt(t RailType, r *world.Region, pos world.Vec3) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.handleFault(t, rec)
			ok = false
		}
	}()
	return t.IsRailAt(r, pos)
}
