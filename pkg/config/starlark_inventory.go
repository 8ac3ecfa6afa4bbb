package config

import (
	"fmt"
	"os"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"gopkg.in/yaml.v3"
)

// starlarkTimeout bounds inventory script execution. Inventory scripts are
// supposed to be quick data generators, not programs.
const starlarkTimeout = 30 * time.Second

// loadStarlarkInventory evaluates a Starlark inventory script. The script
// receives the environment name as `env` and must define a global `hosts`
// list of host dicts using the same keys as the YAML inventory format.
func loadStarlarkInventory(path, env string) ([]*HostConfig, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}

	globals, err := evalStarlark(path, string(src), env)
	if err != nil {
		return nil, err
	}

	hostsVal, ok := globals["hosts"]
	if !ok {
		return nil, fmt.Errorf("inventory %s must define a global 'hosts' list", path)
	}
	hostsList, ok := hostsVal.([]interface{})
	if !ok {
		return nil, fmt.Errorf("inventory %s: 'hosts' must be a list, got %T", path, hostsVal)
	}

	hosts := make([]*HostConfig, 0, len(hostsList))
	schemas := NewSchemaRegistry()
	for i, entry := range hostsList {
		entryMap, ok := entry.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("inventory %s, host %d: entry must be a dict", path, i+1)
		}
		if err := schemas.ValidateHost(entryMap); err != nil {
			return nil, fmt.Errorf("inventory %s, host %d: %w", path, i+1, err)
		}

		host, err := hostFromMap(entryMap)
		if err != nil {
			return nil, fmt.Errorf("inventory %s, host %d: %w", path, i+1, err)
		}
		hosts = append(hosts, host)
	}

	return finishHosts(hosts, env)
}

// hostFromMap decodes a generic host dict through YAML into a HostConfig so
// both inventory formats share one set of field names.
func hostFromMap(entry map[string]interface{}) (*HostConfig, error) {
	raw, err := yaml.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode host entry: %w", err)
	}
	var host HostConfig
	if err := yaml.Unmarshal(raw, &host); err != nil {
		return nil, fmt.Errorf("failed to decode host entry: %w", err)
	}
	return &host, nil
}

// evalStarlark runs the script with a timeout and converts its globals to
// plain Go values. Internal globals (leading underscore) are skipped.
func evalStarlark(filename, src, env string) (map[string]interface{}, error) {
	thread := &starlark.Thread{
		Name: "djaploy-inventory",
		Print: func(_ *starlark.Thread, msg string) {
			// Inventory scripts have no output channel.
		},
	}

	timer := time.AfterFunc(starlarkTimeout, func() {
		thread.Cancel("inventory evaluation timeout")
	})
	defer timer.Stop()

	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"env":    starlark.String(env),
	}

	globals, err := starlark.ExecFile(thread, filename, src, predeclared)
	if err != nil {
		return nil, fmt.Errorf("starlark inventory failed: %w", err)
	}

	out := make(map[string]interface{})
	for name, val := range globals {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		goVal, err := fromStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert global %s: %w", name, err)
		}
		out[name] = goVal
	}
	return out, nil
}

// fromStarlarkValue converts a Starlark value to a plain Go value.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case starlark.Tuple:
		list := make([]interface{}, len(val))
		for i, item := range val {
			converted, err := fromStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = converted
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
