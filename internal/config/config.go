package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/harmonyui/harmonycn/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "components.json"

	// DefaultStyle is the registry style used when none is configured.
	DefaultStyle = "default"

	// DefaultRegistry is the default component registry URL.
	DefaultRegistry = "https://ui.shadcn.com/r"

	// DefaultBranch is the default base branch of the registry repository.
	DefaultBranch = "master"

	// DefaultAuthBaseURL is the device authorization host.
	DefaultAuthBaseURL = "https://github.com"

	// DefaultAPIBaseURL is the Git hosting REST API root.
	DefaultAPIBaseURL = "https://api.github.com"
)

// Environment overrides.
const (
	EnvRegistry = "HARMONYCN_REGISTRY"
	EnvClientID = "GITHUB_CLIENT_ID"
	EnvDebug    = "HARMONYCN_DEBUG"
	EnvToken    = "GITHUB_TOKEN"
	EnvServer   = "HARMONYCN_SERVER"
)

// Config represents the complete components.json configuration.
type Config struct {
	// Schema is the JSON schema URL, preserved on save.
	Schema string `json:"$schema,omitempty"`

	// Style is the registry style components are installed with.
	Style string `json:"style"`

	// RSC enables React Server Component directives.
	RSC bool `json:"rsc,omitempty"`

	// TSX selects TypeScript sources.
	TSX bool `json:"tsx,omitempty"`

	// Tailwind contains Tailwind CSS configuration.
	Tailwind TailwindConfig `json:"tailwind"`

	// Aliases are the import aliases used by the project.
	Aliases AliasConfig `json:"aliases"`

	// Registry is the registry URL or GitHub repository URL.
	Registry string `json:"registry,omitempty"`

	// Paths contains resolved filesystem paths.
	Paths PathsConfig `json:"paths,omitempty"`

	// Publish identifies the repository that receives pull requests.
	Publish PublishConfig `json:"publish,omitempty"`

	// Auth configures the device authorization handshake.
	Auth AuthConfig `json:"auth,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// TailwindConfig contains Tailwind CSS settings.
type TailwindConfig struct {
	// Config is the path to tailwind.config.js.
	Config string `json:"config,omitempty"`

	// CSS is the global stylesheet.
	CSS string `json:"css,omitempty"`

	// BaseColor is the registry base color (neutral, slate, zinc...).
	BaseColor string `json:"baseColor,omitempty"`

	// CSSVariables selects CSS variable theming.
	CSSVariables bool `json:"cssVariables,omitempty"`
}

// AliasConfig contains the project's import aliases.
type AliasConfig struct {
	Components string `json:"components,omitempty"`
	Utils      string `json:"utils,omitempty"`
	UI         string `json:"ui,omitempty"`
	Lib        string `json:"lib,omitempty"`
	Hooks      string `json:"hooks,omitempty"`
}

// PathsConfig contains path configuration for project directories.
type PathsConfig struct {
	// Components is the directory registry files are installed under.
	Components string `json:"components,omitempty"`
}

// PublishConfig identifies the registry repository on the Git host.
type PublishConfig struct {
	Owner  string `json:"owner,omitempty"`
	Repo   string `json:"repo,omitempty"`
	Branch string `json:"branch,omitempty"`

	// APIBaseURL overrides the Git hosting REST API root.
	APIBaseURL string `json:"apiBaseUrl,omitempty"`

	// Server, when set, sends pushes to a registry update server instead
	// of the Git host.
	Server string `json:"server,omitempty"`
}

// AuthConfig configures the device authorization handshake.
type AuthConfig struct {
	ClientID string `json:"clientId,omitempty"`

	// BaseURL overrides the authorization host.
	BaseURL string `json:"baseUrl,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Style: DefaultStyle,
		TSX:   true,
		Tailwind: TailwindConfig{
			BaseColor:    "neutral",
			CSSVariables: true,
		},
		Aliases: AliasConfig{
			Components: "@/components",
			Utils:      "@/lib/utils",
			UI:         "@/components/ui",
			Lib:        "@/lib",
			Hooks:      "@/hooks",
		},
		Registry: DefaultRegistry,
		Paths: PathsConfig{
			Components: "components",
		},
		Publish: PublishConfig{
			Branch:     DefaultBranch,
			APIBaseURL: DefaultAPIBaseURL,
		},
		Auth: AuthConfig{
			BaseURL: DefaultAuthBaseURL,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for components.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigMissing).
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'shadcn init' or create " + ConfigFileName + " manually")
		}
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	cfg := New()
	// An unset components path follows aliases.components.
	cfg.Paths.Components = ""
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyEnv lets the environment override file settings.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRegistry); v != "" {
		c.Registry = v
	}
	if v := os.Getenv(EnvClientID); v != "" {
		c.Auth.ClientID = v
	}
	if v := os.Getenv(EnvServer); v != "" {
		c.Publish.Server = v
	}
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Style == "" {
		c.Style = DefaultStyle
	}
	if c.Registry == "" {
		c.Registry = DefaultRegistry
	}
	if c.Paths.Components == "" {
		c.Paths.Components = aliasToPath(c.Aliases.Components)
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = DefaultBranch
	}
	if c.Publish.APIBaseURL == "" {
		c.Publish.APIBaseURL = DefaultAPIBaseURL
	}
	if c.Auth.BaseURL == "" {
		c.Auth.BaseURL = DefaultAuthBaseURL
	}

	// Infer the publish repository from a GitHub-hosted registry.
	if c.Publish.Owner == "" || c.Publish.Repo == "" {
		if owner, repo, ok := RepositoryFromURL(c.Registry); ok {
			if c.Publish.Owner == "" {
				c.Publish.Owner = owner
			}
			if c.Publish.Repo == "" {
				c.Publish.Repo = repo
			}
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Style, `/\`) {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("style must be a plain name, got " + c.Style)
	}
	return nil
}

// aliasToPath maps an import alias such as "@/components" to a
// project-relative directory.
func aliasToPath(alias string) string {
	if alias == "" {
		return "components"
	}
	alias = strings.TrimPrefix(alias, "@/")
	alias = strings.TrimPrefix(alias, "~/")
	return filepath.FromSlash(alias)
}

// ComponentsPath returns the absolute path to the components directory.
func (c *Config) ComponentsPath() string {
	path := c.Paths.Components
	if path == "" {
		path = "components"
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// HasPublishTarget reports whether a registry repository is configured.
func (c *Config) HasPublishTarget() bool {
	return c.Publish.Owner != "" && c.Publish.Repo != ""
}

var repoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https://github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`),
	regexp.MustCompile(`^https://raw\.githubusercontent\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)/`),
}

// RepositoryFromURL extracts owner and repository from a GitHub or raw
// content URL.
func RepositoryFromURL(url string) (owner, repo string, ok bool) {
	for _, re := range repoURLPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing components.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigMissing).
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'shadcn init' to create a components.json file")
		}
		dir = parent
	}
}

// LoadFromDir loads configuration from dir or its closest ancestor that
// holds a components.json.
func LoadFromDir(dir string) (*Config, error) {
	root, err := FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}
	return Load(root)
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadFromDir(wd)
}
