// Package envx loads shell-style .env files into the process environment and
// overlays environment variables onto config fields.
package envx

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reAssign = regexp.MustCompile(`^\s*(?:export\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*?)\s*$`)

// Load reads KEY=value lines (optionally prefixed with "export") from each
// existing file in paths. Variables already present in the environment win.
// Missing files are skipped.
func Load(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := loadFile(p); err != nil {
			return err
		}
	}
	return nil
}

func loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := reAssign.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key, val := m[1], unquote(m[2])
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return err
		}
	}
	return scan.Err()
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	switch {
	case val[0] == '"' && val[len(val)-1] == '"':
		v := val[1 : len(val)-1]
		v = strings.ReplaceAll(v, `\"`, `"`)
		return strings.ReplaceAll(v, `\\`, `\`)
	case val[0] == '\'' && val[len(val)-1] == '\'':
		return val[1 : len(val)-1]
	}
	return val
}

// String sets *dst to the value of key when the variable is set and non-empty.
func String(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Duration sets *dst from a Go duration string. Invalid values are ignored.
func Duration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// Int64 sets *dst from a base-10 integer. Invalid values are ignored.
func Int64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
