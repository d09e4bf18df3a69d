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
	"io/ioutil"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/intel/compactcore/pkg/zone"
)

const testFixture = `
nodes:
  - id: 0
    zones:
      - name: node0-normal
        start: 0
        end: 64
        pageblockOrder: 3
        freePFNs: [0, 8, 16]
        lruPFNs: [32, 40]
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "compactd-fixture-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp fixture: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("failed to write temp fixture: %v", err)
	}
	return f.Name()
}

func TestLoadFixtureBuildsZonesAndSeedsFreeList(t *testing.T) {
	path := writeFixture(t, testFixture)
	defer os.Remove(path)

	nodes, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture failed: %v", err)
	}
	if len(nodes) != 1 || len(nodes[0].Zones) != 1 {
		t.Fatalf("got %d nodes, want 1 node with 1 zone", len(nodes))
	}

	z := nodes[0].Zones[0]
	if z.Name != "node0-normal" {
		t.Errorf("zone name = %q, want node0-normal", z.Name)
	}
	if z.FreeAreas[0].Count != 3 {
		t.Errorf("order-0 free count = %d, want 3", z.FreeAreas[0].Count)
	}
	if p := z.Page(zone.PFN(32)); p == nil || !p.IsLRU() {
		t.Errorf("pfn 32 should be flagged LRU")
	}

	want := zone.Stats{}
	if got := z.StatsSnapshot(); !cmp.Equal(got, want) {
		t.Errorf("freshly loaded zone should have no accumulated stats, diff (-want +got):\n%s", cmp.Diff(want, got))
	}
}

func TestLoadFixtureRejectsOutOfRangePFN(t *testing.T) {
	path := writeFixture(t, `
nodes:
  - id: 0
    zones:
      - name: z
        start: 0
        end: 8
        pageblockOrder: 2
        freePFNs: [100]
`)
	defer os.Remove(path)

	if _, err := LoadFixture(path); err == nil {
		t.Fatalf("expected an error for an out-of-range free pfn")
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture("/nonexistent/compactd-fixture.yaml"); err == nil {
		t.Fatalf("expected an error for a missing fixture file")
	}
}
