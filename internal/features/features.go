// Package features implements a feature flagging mechanism for the
// interpreter tier.
//
// Features are intended to control properties of the code that can only be
// enabled globally, before the dispatch tables are built.
package features

import (
	"os"
	"strings"
	"sync"
)

const (
	// EnvVarName is the name of the environment variable which contains the
	// list of feature flags.
	EnvVarName = "IPINTFEATURES"
)

const (
	// HugePages backs dispatch table images with huge pages where the
	// kernel supports it.
	HugePages = "hugepages"
	// SIMD enables execution of the vector instruction group.
	SIMD = "simd"
	// Atomics enables execution of the threads instruction group.
	Atomics = "atomics"
	// GC enables execution of the typed-reference instruction group.
	GC = "gc"
	// TailCall enables the return_call family in the base group.
	TailCall = "tail_call"
)

var (
	lock sync.RWMutex
	list []string
)

// FromEnvironment returns the feature names listed in the IPINTFEATURES
// environment variable, without enabling them.
func FromEnvironment() []string {
	features := os.Getenv(EnvVarName)
	if features == "" {
		return nil
	}
	return strings.Split(features, ",")
}

// EnableFromEnvironment extracts the list of features enabled from the
// IPINTFEATURES environment variable.
func EnableFromEnvironment() {
	Enable(FromEnvironment()...)
}

// Enable the list of features passed as arguments.
//
// The function is idempotent and atomic, features that are already present are
// skipped.
//
// Unrecognized features are ignored.
func Enable(features ...string) {
	lock.Lock()
	defer lock.Unlock()

	enabled := list

	for _, f := range features {
		if supported(f) && !have(enabled, f) {
			enabled = append(enabled, f)
		}
	}

	list = enabled
}

// Disable removes features from the enabled list.
//
// Tests use this to restore the default state; production code has no reason
// to call it after initialization.
func Disable(features ...string) {
	lock.Lock()
	defer lock.Unlock()

	var enabled []string
	for _, f := range list {
		if !have(features, f) {
			enabled = append(enabled, f)
		}
	}

	list = enabled
}

// List returns the current list of enabled features.
//
// The program must treat the returned slice as read-only.
func List() []string {
	lock.RLock()
	defer lock.RUnlock()
	return list
}

// Have returns true if the given feature is enabled.
func Have(feature string) bool {
	lock.RLock()
	features := list
	lock.RUnlock()
	return have(features, feature)
}

func have(list []string, feature string) bool {
	for _, f := range list {
		if f == feature {
			return true
		}
	}
	return false
}

func supported(feature string) bool {
	switch feature {
	case HugePages, SIMD, Atomics, GC, TailCall:
		return true
	default:
		return false
	}
}
