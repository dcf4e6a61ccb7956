package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckSmallWorkload(t *testing.T) {
	res, err := check(checkConfig{N: 5000, Seed: 7, MaxKey: 64, Every: 500})
	require.NoError(t, err)
	require.Equal(t, 10, res.verifies)
	require.Equal(t, 5000, res.inserts+res.erases+res.misses)
	require.LessOrEqual(t, res.stats.Height, 2*res.stats.BlackHeight)

	var buf bytes.Buffer
	res.print(&buf)
	require.Contains(t, buf.String(), "5,000")
}

func TestCheckWithBudget(t *testing.T) {
	res, err := check(checkConfig{N: 2000, Seed: 3, MaxKey: 1000, Every: 100, MaxNodes: 50})
	require.NoError(t, err)
	require.Positive(t, res.exhausted)
	require.LessOrEqual(t, res.stats.Nodes, 50)
}

func TestPrintZeroElapsed(t *testing.T) {
	var buf bytes.Buffer
	checkResult{inserts: 3}.print(&buf)
	require.Contains(t, buf.String(), "3 in 0s (0 ")
	require.NotContains(t, buf.String(), "Inf")
}

func TestCheckRejectsBadKeyRange(t *testing.T) {
	_, err := check(checkConfig{N: 10, MaxKey: 0})
	require.Error(t, err)
}
