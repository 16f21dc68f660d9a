/*
fertree reads, summarizes and rewrites phylogenetic trees given as Newick or
Nexus files, including BEAST style [&key=value] node annotations.

usage: fertree [ -f <format> | -o <output> | -n <procs> | --config <file> | -v ] <command> [trees]

commands:

	format		rewrite trees as newick or nexus
	stats		per tree and per node summaries
	extract		taxa, tip annotations, annotation transitions or one tree
	prune		keep, remove or sample taxa
	distance	root-to-tip divergence, shared divergence, comparison to a reference
	ltt		lineages through time table and plot

examples:

	fertree -f nexus format newick posterior.trees > posterior.nwk
	fertree prune keep --taxa keep.txt trees.nwk > pruned.nwk
	fertree distance compare --reference species.nwk gene-trees.nwk > compare.tsv 2> log.txt
*/
package main

import (
	"fmt"
	"os"

	"github.com/jsdoublel/fertree/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrMessage, err)
		os.Exit(1)
	}
}
