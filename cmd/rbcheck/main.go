package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

var options struct {
	n      int
	seed   uint64
	maxkey int64
	every  int
	limit  int
}

func argParse() {
	flag.IntVar(&options.n, "n", 1000000,
		"number of random insert/erase operations")
	flag.Uint64Var(&options.seed, "seed", uint64(time.Now().UnixNano()),
		"random seed")
	flag.Int64Var(&options.maxkey, "maxkey", 1<<16,
		"keys are drawn from [0,maxkey)")
	flag.IntVar(&options.every, "verify", 100000,
		"verify invariants and compare with the oracle every n operations")
	flag.IntVar(&options.limit, "maxnodes", 0,
		"node budget for the tree, 0 is unbounded")
	flag.Parse()
}

func main() {
	argParse()

	res, err := check(checkConfig{
		N:        options.n,
		Seed:     options.seed,
		MaxKey:   options.maxkey,
		Every:    options.every,
		MaxNodes: options.limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed %d: %v\n", options.seed, err)
		os.Exit(1)
	}
	res.print(os.Stdout)
}
