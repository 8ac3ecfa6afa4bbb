package config

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas used to validate raw inventory and
// config documents before they are decoded into structs.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a registry with the built-in schemas loaded.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}
	sr.RegisterSchema("host", builtinHostSchema)
	sr.RegisterSchema("backup", builtinBackupSchema)
	return sr
}

// RegisterSchema compiles and registers a CUE schema under a name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// validateAgainst unifies data with the named schema definition and reports
// any constraint violation.
func (sr *SchemaRegistry) validateAgainst(schemaName, defName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	def := schema.LookupPath(cue.ParsePath(defName))
	if err := def.Err(); err != nil {
		return fmt.Errorf("schema %s has no definition %s: %w", schemaName, defName, err)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := def.Unify(dataVal)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ValidateHost validates a raw inventory host entry against the host schema.
func (sr *SchemaRegistry) ValidateHost(entry map[string]interface{}) error {
	return sr.validateAgainst("host", "#Host", entry)
}

// ValidateBackup validates a raw backup mapping against the backup schema.
func (sr *SchemaRegistry) ValidateBackup(entry map[string]interface{}) error {
	return sr.validateAgainst("backup", "#Backup", entry)
}

// Built-in schema definitions. These mirror the struct types in types.go;
// they exist to give position-aware errors on raw documents before the
// stricter struct decoding runs.

const builtinHostSchema = `
#Host: {
	// name identifies the host in the inventory
	name: string & !=""

	// ssh_host is the address pyinfra connects to
	ssh_host: string & !=""

	ssh_user?: string
	ssh_port?: int & >0 & <65536

	app_user?:     string
	app_hostname?: string
	env?:          string

	services?:       [...string]
	timer_services?: [...string]

	// domains are free-form descriptors consumed by modules
	domains?: [...{...}]

	backup?: #Backup

	// data is a free-form bag merged into pyinfra host data
	data?: {...}
}
` + builtinBackupSchema

const builtinBackupSchema = `
#Backup: {
	enabled?: bool
	type?:    "sftp" | "s3"

	host?:     string
	user?:     string
	password?: string
	port?:     int & >0 & <65536

	s3_endpoint?:   string
	s3_region?:     string
	s3_access_key?: string
	s3_secret_key?: string
	s3_bucket?:     string

	backup_path?:    string
	retention_days?: int & >0
	databases?:      [...string]
	backup_media?:   bool

	// schedule is a cron expression
	schedule?: string
}
`
