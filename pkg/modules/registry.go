package modules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Technology-Company/djaploy/pkg/config"
)

// Factory builds a module instance from its per-module options.
type Factory func(options map[string]interface{}) (Module, error)

// registry holds the known module factories.
type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var defaultRegistry = &registry{
	factories: map[string]Factory{
		"core":      NewCoreModule,
		"nginx":     NewNginxModule,
		"systemd":   NewSystemdModule,
		"tailscale": NewTailscaleModule,
		"rclone":    NewRcloneModule,
	},
}

// Register adds a module factory under a name. Registering an existing name
// is an error; builtins cannot be replaced.
func Register(name string, factory Factory) error {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	if _, exists := defaultRegistry.factories[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}
	defaultRegistry.factories[name] = factory
	return nil
}

// Names returns the registered module names, sorted.
func Names() []string {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	names := make([]string, 0, len(defaultRegistry.factories))
	for name := range defaultRegistry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeName accepts both the short module name and the legacy dotted
// form (djaploy.modules.core).
func normalizeName(name string) string {
	return strings.TrimPrefix(name, "djaploy.modules.")
}

// Load resolves and instantiates the project's module list in order,
// then appends any modules the hosts' own configuration requires (a host
// with backups enabled pulls in the rclone transport module). Duplicates
// are suppressed by name; list order is the only ordering guarantee.
func Load(project *config.ProjectConfig, hosts []*config.HostConfig) ([]Module, error) {
	names := make([]string, 0, len(project.Modules))
	seen := make(map[string]bool)

	add := func(name string) {
		name = normalizeName(name)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, name := range project.Modules {
		add(name)
	}
	for _, host := range hosts {
		for _, name := range host.RequiredModules() {
			add(name)
		}
	}

	known := Names()

	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	mods := make([]Module, 0, len(names))
	for _, name := range names {
		factory, ok := defaultRegistry.factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown module %q (known: %s)", name, strings.Join(known, ", "))
		}
		mod, err := factory(project.ModuleConfig(name))
		if err != nil {
			return nil, fmt.Errorf("failed to configure module %q: %w", name, err)
		}
		mods = append(mods, mod)
	}
	return mods, nil
}
