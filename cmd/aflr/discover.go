package main

import "os"

// discoverWorkerDirs lists the immediate subdirectories of solutionDir that
// look like afl-fuzz worker output directories (they contain a
// fuzzer_stats file once the worker has started; before that they still
// count, since the Monitor tolerates a missing fuzzer_stats as
// StateUnknown).
func discoverWorkerDirs(solutionDir string) ([]string, error) {
	entries, err := os.ReadDir(solutionDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
