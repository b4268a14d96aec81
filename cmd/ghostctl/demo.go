/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/forestghost/config"
	"github.com/notargets/forestghost/exchange"
	"github.com/notargets/forestghost/ghost"
	"github.com/notargets/forestghost/meshforest"
	"github.com/notargets/forestghost/scheme"
)

// demoCmd builds a small in-memory reference forest, runs ghost
// construction across it with an in-process Transport, and prints each
// rank's DebugString.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run ghost-layer construction over a reference in-memory forest",
	Run: func(cmd *cobra.Command, args []string) {
		ranks, _ := cmd.Flags().GetInt("ranks")
		level, _ := cmd.Flags().GetInt("level")
		runDemo(ranks, level)
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntP("ranks", "n", 4, "number of ranks in the reference forest")
	demoCmd.Flags().IntP("level", "l", 3, "refinement level of the reference chain")
}

func runDemo(numRanks, level int) {
	cfg := config.Default()
	if viper.GetBool("profile") {
		cfg.Profile = true
		cfg.ProfileDir = viper.GetString("profileDir")
	}
	ghostType, err := cfg.GhostTypeValue()
	if err != nil {
		panic(err)
	}
	method, err := cfg.DiscoveryMethodValue()
	if err != nil {
		panic(err)
	}

	total := uint64(1) << uint(level)
	offsets := make([]uint64, numRanks+1)
	for r := 0; r <= numRanks; r++ {
		offsets[r] = total * uint64(r) / uint64(numRanks)
	}

	reg := scheme.DefaultRegistry()
	nets := exchange.NewLocalNetwork(numRanks)

	var wg sync.WaitGroup
	layers := make([]*ghost.Layer, numRanks)
	errs := make([]error, numRanks)
	for r := 0; r < numRanks; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			q := meshforest.NewLinearChainForest(r, uint8(level), offsets)
			var profileFn func() func()
			if cfg.Profile {
				profileFn = ghost.WithCPUProfile(cfg.ProfileDir)
			}
			layer, err := ghost.Create(q, reg, nets[r], ghostType, method, profileFn)
			layers[r] = layer
			errs[r] = err
		}(r)
	}
	wg.Wait()

	for r := 0; r < numRanks; r++ {
		if errs[r] != nil {
			fmt.Printf("rank %d: error: %v\n", r, errs[r])
			continue
		}
		fmt.Printf("rank %d:\n%s", r, layers[r].DebugString())
	}
}
