package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadCredentials reads the keypair from the [auth] section of an INI file:
//
//	[auth]
//	public = ...
//	private = ...
//
// Lines starting with # or ; are comments. Missing keys are left empty.
func LoadCredentials(path string) (Credentials, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Credentials{}, fmt.Errorf("open credentials %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	var creds Credentials
	inAuth := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inAuth = line[1:len(line)-1] == "auth"
			continue
		}
		if !inAuth {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "public":
			creds.Public = strings.TrimSpace(value)
		case "private":
			creds.Private = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	return creds, nil
}
