package tiersolve

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config controls a single solving run: where records live, how much
// memory the worker may use, and how parallel it is allowed to be.
type Config struct {
	// SandboxPath is the directory passed to tierdb.Config.
	SandboxPath string
	// MemoryLimit bounds resident record bytes during
	// immediate-transition solving (spec.md §5 "resource lifecycle").
	MemoryLimit int64
	// DBChunkSize is the compression block size, in bytes, tierdb
	// targets for each tier's file.
	DBChunkSize int64
	// WorkerCount bounds how many goroutines a tier's immediate-transition
	// scan or value-iteration sweeps use; backward induction runs on one.
	WorkerCount int
	// LogLevel is a zerolog level name ("debug", "info", "warn", ...).
	// Empty means "leave whatever the CLI already set alone".
	LogLevel string
}

// Validate checks the configuration is usable before a Engine is built
// from it.
func (c Config) Validate() error {
	if c.SandboxPath == "" {
		return errors.New("tiersolve: sandbox path is required")
	}
	if c.MemoryLimit <= 0 {
		return errors.New("tiersolve: memory limit must be > 0")
	}
	if c.DBChunkSize <= 0 {
		return errors.New("tiersolve: db chunk size must be > 0")
	}
	if c.WorkerCount <= 0 {
		return errors.New("tiersolve: worker count must be > 0")
	}
	return nil
}

// DefaultConfig returns a conservative configuration suitable for small
// games and local experimentation.
func DefaultConfig(sandboxPath string) Config {
	return Config{
		SandboxPath: sandboxPath,
		MemoryLimit: 512 * 1024 * 1024,
		DBChunkSize: 64 * 1024,
		WorkerCount: 4,
	}
}

// RunConfig is the hierarchical, file-loaded shape cmd/tiersolve
// decodes from HCL before building a Config from it -- the sandbox/run
// configuration spec.md §6 leaves to "an external collaborator".
type RunConfig struct {
	Run RunSettings `hcl:"run,block"`
}

// RunSettings mirrors Config's fields in HCL-decodable form.
type RunSettings struct {
	SandboxPath    string `hcl:"sandbox_path"`
	MemoryLimitMB  int    `hcl:"memory_limit_mb,optional"`
	DBChunkSizeKB  int    `hcl:"db_chunk_size_kb,optional"`
	WorkerCount    int    `hcl:"worker_count,optional"`
	LogLevel       string `hcl:"log_level,optional"`
}

// ToConfig converts the decoded HCL settings into a Config, filling in
// DefaultConfig's values for anything left at its zero value.
func (r RunConfig) ToConfig() Config {
	cfg := DefaultConfig(r.Run.SandboxPath)
	if r.Run.MemoryLimitMB > 0 {
		cfg.MemoryLimit = int64(r.Run.MemoryLimitMB) * 1024 * 1024
	}
	if r.Run.DBChunkSizeKB > 0 {
		cfg.DBChunkSize = int64(r.Run.DBChunkSizeKB) * 1024
	}
	if r.Run.WorkerCount > 0 {
		cfg.WorkerCount = r.Run.WorkerCount
	}
	cfg.LogLevel = r.Run.LogLevel
	return cfg
}

// LoadRunConfig decodes filename as HCL into a RunConfig, the way
// internal/server.LoadServerConfig decodes ServerConfig: a missing file
// is not an error, it just means "use defaults" (the sandbox path
// argument becomes the only required value).
func LoadRunConfig(filename, defaultSandboxPath string) (Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(defaultSandboxPath), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("tiersolve: parse run config %q: %s", filename, diags.Error())
	}

	var run RunConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &run); diags.HasErrors() {
		return Config{}, fmt.Errorf("tiersolve: decode run config %q: %s", filename, diags.Error())
	}
	if run.Run.SandboxPath == "" {
		run.Run.SandboxPath = defaultSandboxPath
	}
	cfg := run.ToConfig()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("tiersolve: run config %q: %w", filename, err)
	}
	return cfg, nil
}
