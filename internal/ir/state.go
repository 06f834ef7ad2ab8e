package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// StateVersion is the current state file format version.
const StateVersion = 1

// ResourceState is a tracked resource instance in the state file.
type ResourceState struct {
	Address        string         `json:"address"`
	Type           string         `json:"type"`
	Name           string         `json:"name"`
	Attributes     map[string]any `json:"attributes"`
	AttributesHash string         `json:"attributes_hash"`
	Dependencies   []string       `json:"dependencies,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// State is the persisted record of previously-applied resources.
//
// Lineage is fixed when the state is first created and never changes.
// Serial strictly increases on every persisted write. Digest is a stable
// hash over the resource map, recomputed on every write.
type State struct {
	Version    int                       `json:"version"`
	ProjectKey string                    `json:"project_key"`
	Lineage    string                    `json:"lineage"`
	Serial     uint64                    `json:"serial"`
	Digest     string                    `json:"digest"`
	Resources  map[string]*ResourceState `json:"resources"`
}

// NewState returns an empty state with a freshly generated lineage.
func NewState(projectKey string) *State {
	return &State{
		Version:    StateVersion,
		ProjectKey: projectKey,
		Lineage:    uuid.NewString(),
		Resources:  make(map[string]*ResourceState),
	}
}

// Addresses returns the tracked addresses in sorted order.
func (s *State) Addresses() []string {
	addrs := make([]string, 0, len(s.Resources))
	for addr := range s.Resources {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// Clone returns a deep copy of the state via a JSON round-trip.
func (s *State) Clone() *State {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("ir: state not serializable: %v", err))
	}
	out := &State{}
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("ir: state not round-trippable: %v", err))
	}
	if out.Resources == nil {
		out.Resources = make(map[string]*ResourceState)
	}
	return out
}

// ComputeDigest returns a stable hash over a resource map. Serialization
// goes through encoding/json, which sorts map keys, so the digest is
// independent of insertion order.
func ComputeDigest(resources map[string]*ResourceState) string {
	items := make(map[string]map[string]any, len(resources))
	for addr, inst := range resources {
		items[addr] = map[string]any{
			"type":            inst.Type,
			"attributes":      inst.Attributes,
			"attributes_hash": inst.AttributesHash,
			"dependencies":    inst.Dependencies,
		}
	}
	return hashJSON(items)
}

// HashAttributes returns a stable hash of an attribute map, used for
// cheap change detection on individual resources.
func HashAttributes(attrs map[string]any) string {
	return hashJSON(attrs)
}

func hashJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("ir: value not serializable: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
