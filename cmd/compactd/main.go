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

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/intel/compactcore/pkg/compactd"
	"github.com/intel/compactcore/pkg/compaction"
	"github.com/intel/compactcore/pkg/config"
	"github.com/intel/compactcore/pkg/instrumentation"
	logger "github.com/intel/compactcore/pkg/log"
	"github.com/intel/compactcore/pkg/pbset"
	"github.com/intel/compactcore/pkg/version"
	"github.com/intel/compactcore/pkg/zone"
)

var log = logger.Default()

func exit(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "compactd: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	fixturePath := flag.String("fixture", "", "path to a YAML zone fixture (required)")
	once := flag.Bool("once", false, "run a single compaction pass and exit instead of starting the daemon")
	order := flag.Int("order", 2, "allocation order to compact for")
	zoneName := flag.String("zone", "", "in -once mode, restrict the pass to this zone name (default: all zones)")
	priority := flag.String("priority", "async", "in -once mode, compaction priority: async or sync")
	help := flag.Bool("config-help", false, "print configuration help and exit")
	flag.Parse()

	if *help {
		config.Describe(flag.Args()...)
		os.Exit(0)
	}

	if *fixturePath == "" {
		exit("no -fixture given, nothing to compact")
	}

	nodes, err := compactd.LoadFixture(*fixturePath)
	if err != nil {
		exit("%v", err)
	}

	alloc := &compactd.SimpleAllocator{MinFree: 1 << uint(*order+2)}
	mig := compactd.SimpleMigrator{}
	dst := compactd.FreeListDestinations{}

	log.Info("compactd (version %s, build %s) starting...", version.Version, version.Build)

	if *once {
		runOnce(nodes, *order, *zoneName, *priority, alloc, mig, dst)
		return
	}

	runDaemon(nodes, alloc, mig, dst)
}

func runOnce(nodes []*compactd.Node, order int, zoneName, priority string, alloc compaction.Allocator, mig compaction.Migrator, dst compaction.Destinations) {
	d := compactd.NewDaemon(nodes, alloc, mig, dst)

	if strings.EqualFold(priority, "sync") {
		results := d.CompactAllZones(order)
		for name, res := range results {
			if zoneName != "" && name != zoneName {
				continue
			}
			fmt.Printf("%s: %s\n", name, res)
		}
		return
	}

	var targets []*zone.Zone
	for _, z := range d.Zones() {
		if zoneName == "" || z.Name == zoneName {
			targets = append(targets, z)
		}
	}
	if len(targets) == 0 {
		exit("no zone named %q in fixture", zoneName)
	}

	res, err := compactd.TryToCompactPages(targets, order, alloc, mig, dst, nil)
	if err != nil {
		fmt.Printf("%s (%v)\n", res, err)
	} else {
		fmt.Printf("%s\n", res)
	}
	for _, z := range targets {
		s := z.StatsSnapshot()
		fmt.Printf("%s: migrate_scanned=%d free_scanned=%d migrated=%d skipped=%s\n",
			z.Name, s.MigrateScanned, s.FreeScanned, s.Migrated, pbset.Short(z.SkippedPageblocks()))
	}
}

func runDaemon(nodes []*compactd.Node, alloc compaction.Allocator, mig compaction.Migrator, dst compaction.Destinations) {
	d := compactd.NewDaemon(nodes, alloc, mig, dst)
	compaction.Register(d)

	instrumentation.HandleFunc("/debug/skip", func(w http.ResponseWriter, r *http.Request) {
		for _, z := range d.Zones() {
			fmt.Fprintf(w, "%s: %s\n", z.Name, pbset.Short(z.SkippedPageblocks()))
		}
	})

	if err := instrumentation.Start(); err != nil {
		log.Fatal("failed to start instrumentation: %v", err)
	}
	defer instrumentation.Stop()

	d.Start()
	defer d.Stop()

	for {
		time.Sleep(15 * time.Second)
	}
}
