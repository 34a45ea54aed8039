package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pior/beanstalk"
)

func TestRenderTable_Empty(t *testing.T) {
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestRenderTable_PadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"x"}}, nil)
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "x")
	assert.Len(t, strings.Split(out, "\n"), 5)
}

func TestRenderStats_SortedKeys(t *testing.T) {
	out := renderStats(beanstalk.Stats{
		"version":    "1.13",
		"total-jobs": int64(4),
		"uptime":     uint64(10),
	})

	total := strings.Index(out, "total-jobs")
	uptime := strings.Index(out, "uptime")
	version := strings.Index(out, "version")
	assert.True(t, total < uptime && uptime < version, out)
	assert.Contains(t, out, "1.13")
}
