package shared

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfig marks errors that must abort a run before any file is scanned.
var ErrConfig = errors.New("configuration error")

const DefaultThreads = 4

type Config struct {
	Directories struct {
		JCL       string `yaml:"JCL"`
		CNTLLIB   string `yaml:"CNTLLIB"`
		PROC      string `yaml:"PROC"`
		COBOL     string `yaml:"COBOL"`
		Assembler string `yaml:"ASSEMBLER"`
		Copybooks string `yaml:"COPYBOOKS"` // COBOL COPY members, IMS scans
	} `yaml:"directories"`

	ProcLibraries    []string `yaml:"proc_libraries"`
	DefaultUtilities []string `yaml:"default_utilities"`
	CustomUtilities  []string `yaml:"custom_utilities"`
	UtilitiesFile    string   `yaml:"utilities_file"` // COBOL/ASM scans

	Performance struct {
		Threads int `yaml:"threads"`
	} `yaml:"performance"`

	Output struct {
		Directory  string `yaml:"directory"`
		Filename   string `yaml:"filename"`
		Versioning *bool  `yaml:"versioning"`
	} `yaml:"output"`

	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Logging struct {
		Format  string `yaml:"format"` // "json"|"text"
		Level   string `yaml:"level"`
		SkipLog string `yaml:"skip_log"`
	} `yaml:"logging"`

	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		SessionHours   int      `yaml:"session_hours"`
	} `yaml:"server"`

	Rules struct {
		SeverityThreshold string   `yaml:"severity_threshold"`
		Disabled          []string `yaml:"disabled"`
		Pack              string   `yaml:"pack"`
		SortwkPrimaryCyl  int      `yaml:"sortwk_primary_cyl"`
	} `yaml:"rules"`

	Resolver struct {
		CacheSize int `yaml:"cache_size"`
	} `yaml:"resolver"`

	Impact struct {
		ADRDSSUMetadata string `yaml:"adrdssu_metadata"` // support matrix; empty disables the analysis
	} `yaml:"impact"`
}

func DefaultConfig() Config {
	var c Config
	c.Performance.Threads = DefaultThreads
	c.Output.Directory = "./output"
	c.Output.Filename = "jcl_utilities_report"
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./utilscan.db"
	c.Logging.Format = "text"
	c.Logging.Level = "info"
	c.Server.Addr = ":8080"
	c.Server.SessionHours = 12
	c.Rules.SeverityThreshold = "LOW"
	c.Rules.SortwkPrimaryCyl = 500
	c.Resolver.CacheSize = 512
	return c
}

// LoadConfig reads path (optional), then applies .env and UTILSCAN_* overrides.
// A missing or unparsable file named explicitly is a configuration error.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	_ = godotenv.Load()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
		}
	}

	if v := os.Getenv("UTILSCAN_JCL_DIR"); v != "" {
		c.Directories.JCL = v
	}
	if v := os.Getenv("UTILSCAN_CNTLLIB_DIR"); v != "" {
		c.Directories.CNTLLIB = v
	}
	if v := os.Getenv("UTILSCAN_PROC_DIR"); v != "" {
		c.Directories.PROC = v
	}
	if v := os.Getenv("UTILSCAN_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Performance.Threads = n
		}
	}
	if v := os.Getenv("UTILSCAN_OUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("UTILSCAN_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("UTILSCAN_ADRDSSU_METADATA"); v != "" {
		c.Impact.ADRDSSUMetadata = v
	}
	if v := os.Getenv("UTILSCAN_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("UTILSCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if c.Performance.Threads <= 0 {
		c.Performance.Threads = DefaultThreads
	}
	c.DefaultUtilities = normalizeNames(c.DefaultUtilities)
	c.CustomUtilities = normalizeNames(c.CustomUtilities)
	return c, nil
}

// ProcLibs returns proc_libraries, or the single PROC directory when the list is empty.
func (c Config) ProcLibs() []string {
	if len(c.ProcLibraries) > 0 {
		return c.ProcLibraries
	}
	if c.Directories.PROC != "" {
		return []string{c.Directories.PROC}
	}
	return nil
}

// Versioning defaults to on.
func (c Config) Versioning() bool {
	return c.Output.Versioning == nil || *c.Output.Versioning
}

func (c Config) SkipLogPath() string {
	if c.Logging.SkipLog != "" {
		return c.Logging.SkipLog
	}
	return filepath.Join(c.Output.Directory, "utilitysearch.log")
}

// ValidateJCL checks the directories a JCL scan depends on.
func (c Config) ValidateJCL() error {
	if err := requireDir("JCL", c.Directories.JCL); err != nil {
		return err
	}
	if err := requireDir("CNTLLIB", c.Directories.CNTLLIB); err != nil {
		return err
	}
	for _, p := range c.ProcLibs() {
		if err := requireDir("PROC", p); err != nil {
			return err
		}
	}
	if len(c.DefaultUtilities)+len(c.CustomUtilities) == 0 {
		return fmt.Errorf("%w: no default_utilities or custom_utilities configured", ErrConfig)
	}
	return nil
}

func requireDir(label, p string) error {
	if p == "" {
		return fmt.Errorf("%w: %s directory not configured", ErrConfig, label)
	}
	st, err := os.Stat(p)
	if err != nil || !st.IsDir() {
		return fmt.Errorf("%w: %s directory not found: %s", ErrConfig, label, p)
	}
	return nil
}

func normalizeNames(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
