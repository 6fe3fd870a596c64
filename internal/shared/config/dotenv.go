package config

import (
	"bufio"
	"os"
	"strings"
)

// loadEnvFiles applies KEY=VALUE lines from each existing file. Variables already
// present in the process environment win. Unreadable files are skipped.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			key, val, ok := parseEnvLine(scanner.Text())
			if !ok {
				continue
			}
			if existing := os.Getenv(key); existing != "" {
				continue
			}
			_ = os.Setenv(key, val)
		}
		_ = f.Close()
	}
}

func parseEnvLine(raw string) (string, string, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	key, val, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	val = strings.TrimSpace(val)
	if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
		val = val[1 : len(val)-1]
	}
	return key, val, true
}
