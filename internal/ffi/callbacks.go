package ffi

import (
	"sync/atomic"

	"mvlcdaq/pkg/parser"
)

// MaxModulesPerEvent bounds the fixed-size module array a foreign caller's
// event_data callback receives, mirroring the C API's fixed upper bound.
const MaxModulesPerEvent = 20

// ModuleView is one module's contribution to an event, plain arrays
// standing in for C arrays-plus-length.
type ModuleView struct {
	Prefix  []uint32
	Dynamic []uint32
	Suffix  []uint32
}

// EventDataFunc mirrors the C function pointer signature: a fixed-size
// modules array plus the count actually populated.
type EventDataFunc func(eventIndex int32, modules [MaxModulesPerEvent]ModuleView, moduleCount int32)

// SystemEventFunc mirrors the system_event function pointer.
type SystemEventFunc func(subtype uint8, contents []uint32)

// Callbacks is the C-layout struct of two function pointers a foreign
// caller installs before starting a readout.
type Callbacks struct {
	EventData   EventDataFunc
	SystemEvent SystemEventFunc
}

// overflowCount counts events whose module count exceeded
// MaxModulesPerEvent and were truncated — the shim has no channel back to
// the caller for this, so it's tracked here for diagnostics.
var overflowCount int64

// ModulesOverflowCount returns how many events have been truncated to
// MaxModulesPerEvent so far.
func ModulesOverflowCount() int64 { return atomic.LoadInt64(&overflowCount) }

// AdaptCallbacks bridges the slice-based pkg/parser.Callbacks the native
// Go parser drives into the fixed-array ffi.Callbacks shape a foreign
// caller would install. Events with more than MaxModulesPerEvent modules
// are truncated and counted rather than overflowing the fixed array.
func AdaptCallbacks(cb Callbacks) parser.Callbacks {
	return parser.Callbacks{
		EventData: func(eventIndex int, modules []parser.ModuleData) {
			if cb.EventData == nil {
				return
			}
			var view [MaxModulesPerEvent]ModuleView
			n := len(modules)
			if n > MaxModulesPerEvent {
				atomic.AddInt64(&overflowCount, 1)
				n = MaxModulesPerEvent
			}
			for i := 0; i < n; i++ {
				view[i] = ModuleView{
					Prefix:  modules[i].Prefix,
					Dynamic: modules[i].Dynamic,
					Suffix:  modules[i].Suffix,
				}
			}
			cb.EventData(int32(eventIndex), view, int32(n))
		},
		SystemEvent: func(subtype uint8, contents []uint32) {
			if cb.SystemEvent != nil {
				cb.SystemEvent(subtype, contents)
			}
		},
	}
}
