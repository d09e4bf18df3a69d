// Copyright 2024 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compactd

import (
	"fmt"
	"io/ioutil"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/intel/compactcore/pkg/zone"
)

// ZoneFixture describes one zone's initial state for offline analysis,
// the zone-snapshot equivalent of memtierd's YAML routine/policy config
// (cmd/memtierd/main.go's loadConfigFile).
type ZoneFixture struct {
	Name           string     `yaml:"name"`
	Start          zone.PFN   `yaml:"start"`
	End            zone.PFN   `yaml:"end"`
	PageblockOrder int        `yaml:"pageblockOrder"`
	FreePFNs       []zone.PFN `yaml:"freePFNs"`
	LRUPFNs        []zone.PFN `yaml:"lruPFNs"`
}

// NodeFixture describes one node's zones.
type NodeFixture struct {
	ID    int           `yaml:"id"`
	Zones []ZoneFixture `yaml:"zones"`
}

// Fixture is the top-level YAML document cmd/compactd's one-shot mode
// loads in place of a real running kernel's zone state.
type Fixture struct {
	Nodes []NodeFixture `yaml:"nodes"`
}

// LoadFixture parses a fixture file and builds the Node/Zone objects
// it describes. Every free PFN listed is added to its zone's order-0
// Movable free list (the same direct FreeAreas[0].Add seeding used by
// pkg/compaction's own tests); every LRU PFN is flagged as a migration
// source candidate.
func LoadFixture(path string) ([]*Node, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compactd: failed to read fixture %q: %w", path, err)
	}

	var doc Fixture
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("compactd: failed to parse fixture %q: %w", path, err)
	}

	var nodes []*Node
	for _, nf := range doc.Nodes {
		node := &Node{ID: nf.ID}
		lru := &sync.Mutex{}
		for _, zf := range nf.Zones {
			z := zone.New(zf.Name, zf.Start, zf.End, zf.PageblockOrder)
			z.LRUMutex = lru

			for _, pfn := range zf.FreePFNs {
				p := z.Page(pfn)
				if p == nil {
					return nil, fmt.Errorf("compactd: fixture %q: zone %s: free pfn %d out of range", path, zf.Name, pfn)
				}
				z.FreeAreas[0].Add(zone.Movable, p)
			}

			for _, pfn := range zf.LRUPFNs {
				p := z.Page(pfn)
				if p == nil {
					return nil, fmt.Errorf("compactd: fixture %q: zone %s: lru pfn %d out of range", path, zf.Name, pfn)
				}
				p.Flags |= zone.FlagLRU
			}

			node.Zones = append(node.Zones, z)
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}
