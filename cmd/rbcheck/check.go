package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	hm "github.com/dustin/go-humanize"
	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"

	"rbstore/domain/rbtree"
)

type checkConfig struct {
	N        int
	Seed     uint64
	MaxKey   int64
	Every    int
	MaxNodes int
}

type checkResult struct {
	inserts, erases, misses, exhausted int
	verifies                           int
	stats                              rbtree.Stats
	elapsed                            time.Duration
	heap                               uint64
}

// check runs a random workload on a Tree and on a gods red-black tree
// holding key counts, and fails on the first disagreement.
func check(cfg checkConfig) (checkResult, error) {
	var res checkResult
	if cfg.MaxKey <= 0 {
		return res, errors.Newf("maxkey must be positive, got %d", cfg.MaxKey)
	}
	if cfg.Every <= 0 {
		cfg.Every = cfg.N
	}

	tree, err := rbtree.New[int64](rbtree.WithMaxNodes(cfg.MaxNodes))
	if err != nil {
		return res, err
	}
	defer tree.Destroy()

	oracle := rbt.NewWith(utils.Int64Comparator)
	size := 0
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	start := time.Now()
	for i := 1; i <= cfg.N; i++ {
		k := rng.Int64N(cfg.MaxKey)
		if rng.IntN(3) < 2 {
			_, err := tree.Insert(k)
			switch {
			case errors.Is(err, rbtree.ErrAllocation):
				res.exhausted++
			case err != nil:
				return res, errors.Wrapf(err, "op %d insert %d", i, k)
			default:
				c, _ := oracle.Get(k)
				cnt, _ := c.(int)
				oracle.Put(k, cnt+1)
				size++
				res.inserts++
			}
		} else {
			c, ok := oracle.Get(k)
			if got := tree.EraseKey(k); got != ok {
				return res, errors.Newf("op %d erase %d: tree=%v oracle=%v", i, k, got, ok)
			}
			if !ok {
				res.misses++
			} else {
				if cnt := c.(int); cnt > 1 {
					oracle.Put(k, cnt-1)
				} else {
					oracle.Remove(k)
				}
				size--
				res.erases++
			}
		}

		if i%cfg.Every == 0 || i == cfg.N {
			if err := compare(tree, oracle, size); err != nil {
				return res, errors.Wrapf(err, "after op %d", i)
			}
			res.verifies++
		}
	}
	res.elapsed = time.Since(start)
	res.stats = tree.Stats()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	res.heap = ms.HeapAlloc
	return res, nil
}

func compare(tree *rbtree.Tree[int64], oracle *rbt.Tree, size int) error {
	if err := tree.Verify(); err != nil {
		return err
	}
	if tree.Len() != size {
		return errors.Newf("len %d, oracle %d", tree.Len(), size)
	}
	want := make([]int64, 0, size)
	it := oracle.Iterator()
	for it.Next() {
		for i := 0; i < it.Value().(int); i++ {
			want = append(want, it.Key().(int64))
		}
	}
	if got := tree.Keys(); !slices.Equal(got, want) {
		return errors.New("key order differs from oracle")
	}
	return nil
}

func (r checkResult) print(w io.Writer) {
	ops := r.inserts + r.erases + r.misses + r.exhausted
	rate := 0.0
	if secs := r.elapsed.Seconds(); secs > 0 {
		rate = float64(ops) / secs
	}
	fmt.Fprintf(w, "ops        : %s in %v (%s ops/s)\n", hm.Comma(int64(ops)), r.elapsed.Round(time.Millisecond), hm.SIWithDigits(rate, 2, ""))
	fmt.Fprintf(w, "inserts    : %s (%s over budget)\n", hm.Comma(int64(r.inserts)), hm.Comma(int64(r.exhausted)))
	fmt.Fprintf(w, "erases     : %s (%s misses)\n", hm.Comma(int64(r.erases)), hm.Comma(int64(r.misses)))
	fmt.Fprintf(w, "verified   : %d times\n", r.verifies)
	fmt.Fprintf(w, "nodes      : %s red:%s black:%s\n", hm.Comma(int64(r.stats.Nodes)), hm.Comma(int64(r.stats.Red)), hm.Comma(int64(r.stats.Black)))
	fmt.Fprintf(w, "height     : %d (bound %d, black height %d)\n", r.stats.Height, rbtree.MaxHeight(r.stats.Nodes), r.stats.BlackHeight)
	fmt.Fprintf(w, "heap       : %s\n", hm.Bytes(r.heap))
}
