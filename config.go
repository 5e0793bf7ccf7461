package ipint

import (
	"github.com/wasmkit/ipint/internal/fatal"
	"github.com/wasmkit/ipint/internal/features"
	"github.com/wasmkit/ipint/internal/ptrtag"
)

// TierConfig controls how the dispatch tier is built, with the default
// implementation as NewTierConfig.
type TierConfig struct {
	tags      ptrtag.Scheme
	features  []string
	fatalHook fatal.Hook
	logName   string
}

// baseTierConfig helps avoid copy/pasting the wrong defaults.
var baseTierConfig = &TierConfig{
	tags:    ptrtag.Identity(),
	logName: "ipint",
}

// clone ensures all fields are copied even if zero.
func (c *TierConfig) clone() *TierConfig {
	return &TierConfig{
		tags:      c.tags,
		features:  c.features,
		fatalHook: c.fatalHook,
		logName:   c.logName,
	}
}

// NewTierConfig records handler addresses untagged, which is what every
// platform without pointer signing wants.
func NewTierConfig() *TierConfig {
	return baseTierConfig.clone()
}

// WithPointerTags records handler addresses through the given tagging
// scheme, the way a signing toolchain would hand them to us. Verification
// strips the tag before any arithmetic, so a layout checks out the same
// either way.
func (c *TierConfig) WithPointerTags(s ptrtag.Scheme) *TierConfig {
	ret := c.clone()
	ret.tags = s
	return ret
}

// WithFeatures enables the named instruction-set extensions before the
// tier comes up. Unrecognized names are ignored, same as the IPINTFEATURES
// environment variable.
//
// Note: every handler group is laid out and verified regardless; features
// only change behavior at execution time.
func (c *TierConfig) WithFeatures(names ...string) *TierConfig {
	ret := c.clone()
	ret.features = append(append([]string{}, c.features...), names...)
	return ret
}

// WithFeaturesFromEnvironment enables every extension listed in the
// IPINTFEATURES environment variable, on top of any set explicitly.
func (c *TierConfig) WithFeaturesFromEnvironment() *TierConfig {
	ret := c.clone()
	ret.features = append(append([]string{}, c.features...), features.FromEnvironment()...)
	return ret
}

// WithFatalHook routes unrecoverable layout conditions to h instead of the
// default stderr-and-exit behavior. Embedders that cannot tolerate os.Exit
// install a hook that unwinds or reports on their own terms; the hook must
// not return. NewTier installs it before anything can fail.
func (c *TierConfig) WithFatalHook(h func(msg string)) *TierConfig {
	ret := c.clone()
	ret.fatalHook = h
	return ret
}

// WithLogName scopes the tier's log messages under the given logger name.
// It defaults to "ipint".
func (c *TierConfig) WithLogName(name string) *TierConfig {
	ret := c.clone()
	ret.logName = name
	return ret
}
