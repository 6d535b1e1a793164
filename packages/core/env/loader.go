package env

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnvironmentFiles are read from the script directory in order; later files
// override earlier ones.
var EnvironmentFiles = []string{
	"http-client.env.json",
	"http-client.private.env.json",
}

var ErrEnvironmentNotFound = errors.New("environment not found")

type Environment struct {
	Name      string
	Variables map[string]string
}

// LoadEnvironment reads the environment files next to a script and returns
// the flat variable set of the named environment. An empty name yields an
// empty environment.
func LoadEnvironment(dir, envName string) (*Environment, error) {
	env := &Environment{
		Name:      envName,
		Variables: make(map[string]string),
	}
	if envName == "" {
		return env, nil
	}

	found := false
	loaded := false
	var available []string
	for _, name := range EnvironmentFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		loaded = true

		var all map[string]map[string]any
		if err := json.Unmarshal(data, &all); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}

		vars, ok := all[envName]
		if !ok {
			for k := range all {
				available = append(available, k)
			}
			continue
		}
		found = true
		for k, v := range vars {
			env.Variables[k] = stringify(v)
		}
	}

	if !loaded {
		return nil, fmt.Errorf("%w: no %s in %s", ErrEnvironmentNotFound, EnvironmentFiles[0], dir)
	}
	if !found {
		sort.Strings(available)
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrEnvironmentNotFound, envName, strings.Join(available, ", "))
	}

	return env, nil
}

func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns the OS environment variables starting with prefix,
// with the prefix removed.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok || prefix == "" {
			continue
		}
		if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}
