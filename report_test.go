package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBenchmarkResultsDropsHarvestedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree_benchmark.json")
	writeFile(t, path, `{"context": {}, "benchmarks": [], "BuildTimes": {"stale": 1.0}, "Revision": {"commit": "abc"}}`)

	r, records, err := loadBenchmarkResults(path)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Contains(t, r.base, "context")
	assert.NotContains(t, r.base, "BuildTimes")
	assert.NotContains(t, r.base, "Revision")
}

func TestLoadBenchmarkResultsErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := loadBenchmarkResults(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(dir, "no_benchmarks.json")
	writeFile(t, path, `{"context": {}}`)
	_, _, err = loadBenchmarkResults(path)
	assert.Error(t, err)

	path = filepath.Join(dir, "truncated.json")
	writeFile(t, path, `{"benchmarks": [`)
	_, _, err = loadBenchmarkResults(path)
	assert.Error(t, err)
}

func TestWriteAndReadReport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree_benchmark.json")
	writeFile(t, src, treeBenchmarkJSON)

	r, records, err := loadBenchmarkResults(src)
	require.NoError(t, err)
	r.BuildTimes = map[string]float64{"tuple": 83.45}
	r.BuildSize = map[string]int64{"tuple": 104857600}
	r.EvalTimes, err = DeriveEvalTimes(records)
	require.NoError(t, err)
	r.Revision = &Revision{Commit: "0123abcd", Dirty: true}

	path := reportPath(filepath.Join(dir, "benchmark"), "g++-8.2", "examples/ant/tree_benchmark.json")
	assert.Equal(t, filepath.Join(dir, "benchmark", "g++-8.2-tree_benchmark.json"), path)
	require.NoError(t, writeReport(path, r))

	raw := readJSON(t, path)
	benchmarks := raw["benchmarks"].([]interface{})
	assert.Equal(t, float64(100), benchmarks[0].(map[string]interface{})["iterations"])
	assert.Equal(t, map[string]interface{}{"commit": "0123abcd", "dirty": true}, raw["Revision"])

	got, err := readReport(path)
	require.NoError(t, err)
	assert.Equal(t, r.BuildTimes, got.BuildTimes)
	assert.Equal(t, r.BuildSize, got.BuildSize)
	assert.Equal(t, r.Revision, got.Revision)
	cpu, err := got.EvalTimes[evalMedian]["tuple"].CPUTime()
	require.NoError(t, err)
	assert.Equal(t, 15.0, cpu)

	files, err := filepath.Glob(filepath.Join(dir, "benchmark", ".*"))
	require.NoError(t, err)
	assert.Empty(t, files, "temporary files left behind")
}

func TestReportWithoutRevision(t *testing.T) {
	r := &Report{
		base:       map[string]json.RawMessage{"benchmarks": json.RawMessage(`[]`)},
		BuildTimes: map[string]float64{},
		BuildSize:  map[string]int64{},
		EvalTimes:  EvalTimes{},
	}
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeReport(path, r))
	raw := readJSON(t, path)
	assert.Len(t, raw, 4)
	assert.NotContains(t, raw, "Revision")
}

func TestShowTables(t *testing.T) {
	r := &Report{
		BuildTimes: map[string]float64{"tuple": 83.45, "oop": 12},
		BuildSize:  map[string]int64{"tuple": 2048},
		EvalTimes: EvalTimes{
			fullMedian:       {"tuple": {"cpu_time": 25.0}},
			createOnlyMedian: {"tuple": {"cpu_time": 10.0}},
			evalMedian:       {"tuple": {"cpu_time": 15.0}},
		},
	}
	var buf bytes.Buffer
	showBuildTable(&buf, "g++-8.2", r)
	showEvalTable(&buf, r)
	out := buf.String()
	assert.Contains(t, out, "g++-8.2\n=======")
	assert.Contains(t, out, "83.45 s")
	assert.Contains(t, out, "2048 B")
	assert.Contains(t, out, "Eval_median")
	assert.Contains(t, out, "15.00")
}
