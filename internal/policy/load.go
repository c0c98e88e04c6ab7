package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// domainFile is the shape accepted when a domain-list input is given
// as a JSON/JSONC file: {"allowed": [...], "blocked": [...]}. Either
// key may be omitted.
type domainFile struct {
	Allowed []string `json:"allowed"`
	Blocked []string `json:"blocked"`
}

// LoadDomainFile reads an allowed/blocked domain-list file. JSONC
// (.json/.jsonc extension) is decoded as a domainFile; any other
// extension is treated as a newline-delimited plain-text list of
// allowed domains with no blocked entries. Reading the file is the
// only filesystem access the Policy Compiler performs.
func LoadDomainFile(path string) (allowed, blocked []string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading domain file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		var df domainFile
		if err := json.Unmarshal(jsonc.ToJSON(data), &df); err != nil {
			return nil, nil, fmt.Errorf("parsing domain file %s: %w", path, err)
		}
		return df.Allowed, df.Blocked, nil
	default:
		return splitLines(data), nil, nil
	}
}

func splitLines(data []byte) []string {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
