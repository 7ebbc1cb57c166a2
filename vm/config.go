// Package vm bundles the heap, the predeclared-bindings table and the fiber
// interpreter into the single explicit context a host embeds, per spec.md's
// "VM context" design note (§9): "expose it as an explicit handle... do not
// recreate the thread-local-pointer pattern." Everything this package needs
// already exists one layer down (gc.Heap's root stack and scratch list,
// fiber.Interp's step loop); vm.VM's job is construction and configuration,
// not reimplementing any of that.
package vm

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config holds the tunables a host may want to set once at startup rather
// than hardcode, the handful §9 calls out by name: the GC's step interval,
// a default instruction budget per Resume call, the call-stack depth bound,
// and a hash-flooding defense seed. Every field has a zero-value-safe
// default, matching caarlos0/env's own opt-in philosophy: an unconfigured
// Config still produces a usable VM.
type Config struct {
	// GCInterval is the allocation-byte interval between automatic collection
	// checks (gc.Heap's constructor parameter). 0 selects gc.NewHeap's
	// default interval of 4096 bytes; collection stays automatic.
	GCInterval uint64 `env:"COREVM_GC_INTERVAL" envDefault:"1048576"`

	// MaxSteps bounds the number of bytecode instructions a single Resume
	// call executes before it force-yields control back to the host. 0
	// disables the limit, matching fiber.Interp's own default.
	MaxSteps int64 `env:"COREVM_MAX_STEPS" envDefault:"0"`

	// MaxCallStackDepth bounds the number of frames any one fiber's call
	// stack may hold, guarding against runaway recursion exhausting memory
	// instead of failing cleanly. Applied process-wide via fiber.MaxCallDepth,
	// since the interpreter has no other hook for it; 0 leaves
	// fiber.MaxCallDepth unchanged.
	MaxCallStackDepth int `env:"COREVM_MAX_CALL_DEPTH" envDefault:"4096"`

	// HashSeed salts the FNV-1a hash used for String/Symbol/Keyword, raising
	// the cost of an attacker predicting hash-table collisions. 0 (the
	// zero value) reproduces vanilla unsalted FNV-1a, so a Config left at
	// its defaults behaves exactly as if hash-flooding defense were absent.
	HashSeed uint32 `env:"COREVM_HASH_SEED" envDefault:"0"`
}

// LoadConfig returns a Config populated from the process environment,
// falling back to each field's envDefault tag when the variable is unset.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("vm: parsing environment config: %w", err)
	}
	return cfg, nil
}
