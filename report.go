package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
)

const (
	keyBenchmarks = "benchmarks"
	keyBuildTimes = "BuildTimes"
	keyBuildSize  = "BuildSize"
	keyEvalTimes  = "EvalTimes"
	keyRevision   = "Revision"
)

// Report is the benchmark results file produced by the build, extended with
// the harvested build times, binary sizes and derived evaluation times.
type Report struct {
	// Top-level keys of the benchmark results file, kept as they were.
	base map[string]json.RawMessage

	BuildTimes map[string]float64
	BuildSize  map[string]int64
	EvalTimes  EvalTimes
	Revision   *Revision
}

// loadBenchmarkResults reads the benchmark results JSON written by the
// benchmark target and returns it as the base of a report.
func loadBenchmarkResults(path string) (*Report, []BenchmarkRecord, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	base := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, nil, fmt.Errorf("unable to decode '%s': %w", path, err)
	}
	raw, ok := base[keyBenchmarks]
	if !ok {
		return nil, nil, fmt.Errorf("'%s' has no %s", path, keyBenchmarks)
	}
	var records []BenchmarkRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, nil, fmt.Errorf("unable to decode %s in '%s': %w", keyBenchmarks, path, err)
	}
	for _, key := range []string{keyBuildTimes, keyBuildSize, keyEvalTimes, keyRevision} {
		delete(base, key)
	}
	return &Report{base: base}, records, nil
}

func (r *Report) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.base)+4)
	for k, v := range r.base {
		out[k] = v
	}
	out[keyBuildTimes] = r.BuildTimes
	out[keyBuildSize] = r.BuildSize
	out[keyEvalTimes] = r.EvalTimes
	if r.Revision != nil {
		out[keyRevision] = r.Revision
	}
	return json.Marshal(out)
}

func (r *Report) UnmarshalJSON(data []byte) error {
	base := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	fields := map[string]interface{}{
		keyBuildTimes: &r.BuildTimes,
		keyBuildSize:  &r.BuildSize,
		keyEvalTimes:  &r.EvalTimes,
		keyRevision:   &r.Revision,
	}
	for key, field := range fields {
		raw, ok := base[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, field); err != nil {
			return fmt.Errorf("unable to decode %s: %w", key, err)
		}
		delete(base, key)
	}
	r.base = base
	return nil
}

func reportPath(resultsDir, entryDir, benchmarkResults string) string {
	return filepath.Join(resultsDir, fmt.Sprintf("%s-%s", entryDir, filepath.Base(benchmarkResults)))
}

// writeReport replaces the file at path with the indented report.
func writeReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := ioutil.TempFile(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("unable to write report '%s': %w", path, err)
	}
	return nil
}

func readReport(path string) (*Report, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := &Report{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("unable to decode report '%s': %w", path, err)
	}
	return r, nil
}

func sortedKeys(maps ...map[string]bool) []string {
	seen := make(map[string]bool)
	for _, m := range maps {
		for k := range m {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func showBuildTable(w io.Writer, title string, r *Report) {
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", len(title)))

	labels := make(map[string]bool)
	for label := range r.BuildTimes {
		labels[label] = true
	}
	for label := range r.BuildSize {
		labels[label] = true
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetHeader([]string{"Label", "BuildTime", "BuildSize"})
	table.SetRowLine(true)
	for _, label := range sortedKeys(labels) {
		row := []string{label, "-", "-"}
		if secs, ok := r.BuildTimes[label]; ok {
			row[1] = fmt.Sprintf(" %.2f s", secs)
		}
		if size, ok := r.BuildSize[label]; ok {
			row[2] = fmt.Sprintf(" %d B", size)
		}
		table.Append(row)
	}
	table.Render()
}

func formatCPUTime(b BenchmarkRecord, ok bool) string {
	if !ok {
		return "-"
	}
	t, err := b.CPUTime()
	if err != nil {
		return "-"
	}
	return fmt.Sprintf(" %.2f", t)
}

func showEvalTable(w io.Writer, r *Report) {
	if r.EvalTimes == nil {
		return
	}
	names := make(map[string]bool)
	for _, group := range r.EvalTimes {
		for name := range group {
			names[name] = true
		}
	}
	if len(names) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetHeader([]string{"Name", fullMedian, createOnlyMedian, evalMedian})
	table.SetRowLine(true)
	for _, name := range sortedKeys(names) {
		full, fullOK := r.EvalTimes[fullMedian][name]
		create, createOK := r.EvalTimes[createOnlyMedian][name]
		eval, evalOK := r.EvalTimes[evalMedian][name]
		table.Append([]string{name, formatCPUTime(full, fullOK), formatCPUTime(create, createOK), formatCPUTime(eval, evalOK)})
	}
	fmt.Fprintln(w)
	table.Render()
}
