package script

import (
	"sort"
	"strings"

	"github.com/Technology-Company/djaploy/pkg/config"
)

// hostKeyOrder fixes the rendering order of the top-level host mapping.
var hostKeyOrder = []string{"name", "ssh_host", "ssh_user", "ssh_port", "data"}

// dataKeyOrder fixes the rendering order of the well-known data keys;
// free-form extras follow, sorted.
var dataKeyOrder = []string{
	"app_user", "app_hostname", "env",
	"services", "timer_services", "domains", "backup",
}

// RenderInventory produces the pyinfra inventory source: one entry per host,
// each the mapping returned by HostConfig.ToPyinfraHost.
func RenderInventory(hosts []*config.HostConfig) string {
	var b strings.Builder
	b.WriteString("hosts = [\n")
	for _, h := range hosts {
		b.WriteString("    ")
		b.WriteString(renderHost(h.ToPyinfraHost()))
		b.WriteString(",\n")
	}
	b.WriteString("]\n")
	return b.String()
}

// renderHost renders one host mapping with deterministic key order.
func renderHost(host map[string]interface{}) string {
	pairs := make([]string, 0, len(host))
	for _, key := range hostKeyOrder {
		val, ok := host[key]
		if !ok {
			continue
		}
		if key == "data" {
			data, _ := val.(map[string]interface{})
			pairs = append(pairs, quotePy(key)+": "+renderData(data))
			continue
		}
		pairs = append(pairs, quotePy(key)+": "+Literal(val))
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// renderData renders the host data bag: known keys first, extras sorted.
func renderData(data map[string]interface{}) string {
	known := make(map[string]bool, len(dataKeyOrder))
	pairs := make([]string, 0, len(data))

	for _, key := range dataKeyOrder {
		known[key] = true
		if val, ok := data[key]; ok {
			pairs = append(pairs, quotePy(key)+": "+Literal(val))
		}
	}

	extras := make([]string, 0, len(data))
	for key := range data {
		if !known[key] {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		pairs = append(pairs, quotePy(key)+": "+Literal(data[key]))
	}

	return "{" + strings.Join(pairs, ", ") + "}"
}
