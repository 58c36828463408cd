package pagedb

// Config loads the handful of knobs a pagedb deployment needs from a YAML
// document, the way SimonWaldherr-tinySQL reaches for gopkg.in/yaml.v3
// rather than stdlib encoding/json for its own example/config files.

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TableConfig names one table's backing heap file and its schema, as
// listed under Config.Tables.
type TableConfig struct {
	Name    string `yaml:"name"`
	File    string `yaml:"file"`
	Columns []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"columns"`
}

// Config is the top-level shape of a pagedb YAML config file.
type Config struct {
	PageSize       int           `yaml:"pageSize"`
	MaxBufferPages int           `yaml:"maxBufferPages"`
	LockTimeout    time.Duration `yaml:"lockTimeout"`
	Tables         []TableConfig `yaml:"tables"`
}

// defaultConfig mirrors the package-level defaults every other component
// falls back to when no config file is supplied.
func defaultConfig() Config {
	return Config{
		PageSize:       PageSize,
		MaxBufferPages: DefaultMaxBufferPages,
		LockTimeout:    defaultLockTimeout,
	}
}

// LoadConfig reads and parses a YAML config file at path, filling in
// defaults for any field the document omits.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = PageSize
	}
	if cfg.MaxBufferPages <= 0 {
		cfg.MaxBufferPages = DefaultMaxBufferPages
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	return &cfg, nil
}

// fieldTypes maps each config column's YAML type name to a DBType.
func (t TableConfig) fieldTypes() ([]FieldType, error) {
	fields := make([]FieldType, 0, len(t.Columns))
	for _, c := range t.Columns {
		var ft DBType
		switch c.Type {
		case "int", "int32", "int64":
			ft = IntType
		case "string", "varchar":
			ft = StringType
		case "double", "float", "float64":
			ft = DoubleType
		default:
			return nil, newErr(MalformedDataError, "config: unknown column type %q for %s.%s", c.Type, t.Name, c.Name)
		}
		fields = append(fields, FieldType{Fname: c.Name, Ftype: ft})
	}
	return fields, nil
}

// BuildCatalog opens every table named in the config's Tables list as a
// HeapFile and registers it in a fresh MemCatalog.
func (c *Config) BuildCatalog(bp *BufferPool) (*MemCatalog, error) {
	catalog := NewMemCatalog()
	for _, t := range c.Tables {
		fields, err := t.fieldTypes()
		if err != nil {
			return nil, err
		}
		td := &TupleDesc{Fields: fields}
		hf, err := NewHeapFile(t.File, td, bp)
		if err != nil {
			return nil, fmt.Errorf("opening table %s: %w", t.Name, err)
		}
		catalog.AddTable(t.Name, hf)
	}
	return catalog, nil
}
