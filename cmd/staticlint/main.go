// Command staticlint runs the project's static analysis suite: analyzers
// from the Go toolchain, third-party analyzers, the project analyzer
// noosexit and the staticcheck checks listed in config.json, all in a
// single multichecker.Main invocation.
//
// config.json is looked up next to the binary, then in the working
// directory. Its Staticcheck list accepts check names from the
// staticcheck (SA), simple (S) and stylecheck (ST) suites.
package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/patric-chuzhbe/filesmanager/cmd/staticlint/noosexit"
)

// Config is the name of the JSON file that lists enabled staticcheck checks.
const Config = `config.json`

// ConfigData describes the configuration file, e.g. {"Staticcheck": ["SA1000", "S1002"]}.
type ConfigData struct {
	Staticcheck []string
}

func readConfig() (*ConfigData, error) {
	candidates := []string{Config}
	if appfile, err := os.Executable(); err == nil {
		candidates = append([]string{filepath.Join(filepath.Dir(appfile), Config)}, candidates...)
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg ConfigData
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	return &ConfigData{}, nil
}

func selected(cfg *ConfigData, suites ...[]*lint.Analyzer) []*analysis.Analyzer {
	checks := make(map[string]bool, len(cfg.Staticcheck))
	for _, name := range cfg.Staticcheck {
		checks[name] = true
	}

	var result []*analysis.Analyzer
	for _, suite := range suites {
		for _, v := range suite {
			if checks[v.Analyzer.Name] {
				result = append(result, v.Analyzer)
			}
		}
	}
	return result
}

func main() {
	cfg, err := readConfig()
	if err != nil {
		panic(err)
	}

	myChecks := []*analysis.Analyzer{
		bools.Analyzer,
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		nilness.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
	}
	myChecks = append(myChecks, selected(cfg, staticcheck.Analyzers, simple.Analyzers, stylecheck.Analyzers)...)

	multichecker.Main(myChecks...)
}
