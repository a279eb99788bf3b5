package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "github.com/gglang/the-voices-sub000"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// corePackages run inside the tick and must stay free of host transport.
var corePackages = []string{
	modulePath + "/internal/world",
	modulePath + "/internal/state",
	modulePath + "/internal/schedule",
	modulePath + "/internal/ai",
	modulePath + "/internal/threat",
	modulePath + "/internal/dispatch",
	modulePath + "/internal/sim",
	modulePath + "/internal/config",
}

var forbiddenImports = []string{
	modulePath + "/internal/net",
	modulePath + "/internal/app",
	modulePath + "/internal/observability",
	"github.com/gorilla/websocket",
	"net/http",
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	violations, err := check(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func check(r io.Reader) ([]string, error) {
	decoder := json.NewDecoder(r)

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !isCore(pkg.ImportPath) {
			continue
		}
		for _, imp := range pkg.Imports {
			if isForbidden(imp) {
				violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
		}
	}
	sort.Strings(violations)
	return violations, nil
}

func isCore(path string) bool {
	for _, core := range corePackages {
		if path == core || strings.HasPrefix(path, core+"/") {
			return true
		}
	}
	return false
}

func isForbidden(imp string) bool {
	for _, forbidden := range forbiddenImports {
		if imp == forbidden || strings.HasPrefix(imp, forbidden+"/") {
			return true
		}
	}
	return false
}
