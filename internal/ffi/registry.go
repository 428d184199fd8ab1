package ffi

import (
	"mvlcdaq/pkg/cratecfg"
	"mvlcdaq/pkg/readout"
)

var crateConfigs = newTable[cratecfg.CrateConfig]()

// RegisterCrateConfig hands out a handle for cfg, the foreign-caller
// analogue of "parse YAML, get back an opaque crate config handle".
func RegisterCrateConfig(cfg cratecfg.CrateConfig) Handle {
	return crateConfigs.Register(cfg)
}

// LookupCrateConfig resolves h back to its CrateConfig.
func LookupCrateConfig(h Handle) (cratecfg.CrateConfig, bool) {
	return crateConfigs.Lookup(h)
}

// ReleaseCrateConfig frees h's slot.
func ReleaseCrateConfig(h Handle) bool {
	return crateConfigs.Release(h)
}

var workers = newTable[*readout.Worker]()

// RegisterWorker hands out a handle for a running or idle readout worker.
func RegisterWorker(w *readout.Worker) Handle {
	return workers.Register(w)
}

// LookupWorker resolves h back to its *readout.Worker.
func LookupWorker(h Handle) (*readout.Worker, bool) {
	return workers.Lookup(h)
}

// ReleaseWorker frees h's slot. Callers must have already driven the
// worker to Idle (e.g. via Stop + WaitFor) before releasing.
func ReleaseWorker(h Handle) bool {
	return workers.Release(h)
}
