// Package manifest gives a table layout a portable, address-free identity.
//
// A manifest records the shape of every group (stride, entry count) and the
// digest of its frozen image, but never an address: two processes that
// built the same tables produce byte-identical manifests no matter where
// their segments were mapped. Canonical CBOR keeps the encoding
// deterministic, which is what makes the fingerprint meaningful.
package manifest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/wasmkit/ipint/internal/dispatch"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
}

// Group records the shape and content digest of one dispatch table.
type Group struct {
	ID     string `cbor:"id"`
	Stride uint32 `cbor:"stride"`
	Count  int    `cbor:"count"`
	Digest []byte `cbor:"digest"`
}

// Manifest captures everything reproducible about a built table set.
type Manifest struct {
	Version string  `cbor:"version"`
	Arch    string  `cbor:"arch"`
	Groups  []Group `cbor:"groups"`
}

// FromGroups assembles a manifest from verified group bases in catalogue
// order.
func FromGroups(version, arch string, groups []dispatch.GroupBase) *Manifest {
	m := &Manifest{Version: version, Arch: arch, Groups: make([]Group, len(groups))}
	for i, gb := range groups {
		digest := make([]byte, len(gb.Digest))
		copy(digest, gb.Digest[:])
		m.Groups[i] = Group{ID: string(gb.ID), Stride: gb.Stride, Count: gb.Count, Digest: digest}
	}
	return m
}

// FromConfig captures the manifest of a verified dispatch configuration.
func FromConfig(version string, cfg *dispatch.Config) *Manifest {
	if cfg == nil {
		panic(errors.New("BUG: manifest of a nil dispatch config"))
	}
	return FromGroups(version, cfg.Arch(), cfg.Groups())
}

// Encode returns the canonical CBOR encoding of the manifest.
func (m *Manifest) Encode() ([]byte, error) {
	return encMode.Marshal(m)
}

// Decode parses a canonical manifest encoding.
func Decode(b []byte) (*Manifest, error) {
	var m Manifest
	if err := cbor.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding layout manifest: %w", err)
	}
	return &m, nil
}

// Fingerprint returns the BLAKE3 digest of the canonical encoding, the
// short identity of the whole layout.
func (m *Manifest) Fingerprint() ([32]byte, error) {
	b, err := m.Encode()
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(b), nil
}

// group returns the named group, or nil.
func (m *Manifest) group(id string) *Group {
	for i := range m.Groups {
		if m.Groups[i].ID == id {
			return &m.Groups[i]
		}
	}
	return nil
}

// Diff reports the layout differences from a to b, one line per change.
// An empty result means the manifests describe the same tables. Version
// strings are informational and not compared.
func Diff(a, b *Manifest) []string {
	var lines []string
	if a.Arch != b.Arch {
		lines = append(lines, fmt.Sprintf("arch: %s -> %s", a.Arch, b.Arch))
	}
	for _, ga := range a.Groups {
		gb := b.group(ga.ID)
		if gb == nil {
			lines = append(lines, fmt.Sprintf("group %s: removed", ga.ID))
			continue
		}
		if ga.Stride != gb.Stride {
			lines = append(lines, fmt.Sprintf("group %s: stride %d -> %d", ga.ID, ga.Stride, gb.Stride))
		}
		if ga.Count != gb.Count {
			lines = append(lines, fmt.Sprintf("group %s: %d -> %d entries", ga.ID, ga.Count, gb.Count))
		}
		if !bytes.Equal(ga.Digest, gb.Digest) {
			lines = append(lines, fmt.Sprintf("group %s: image digest changed", ga.ID))
		}
	}
	for _, gb := range b.Groups {
		if a.group(gb.ID) == nil {
			lines = append(lines, fmt.Sprintf("group %s: added", gb.ID))
		}
	}
	return lines
}
