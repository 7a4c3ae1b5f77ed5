// Package config loads the startup configuration of the responder. Values are
// layered, later sources overriding earlier ones: built-in defaults, an
// optional YAML/JSON/TOML file, DNS_* environment variables, then command-line
// flags. The result is validated once and never re-read.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/haukened/lbdns/internal/dns/common/utils"
	"github.com/haukened/lbdns/internal/dns/domain"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "DNS_"

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = EnvPrefix + "CONFIG"

// Geo providers.
const (
	GeoProviderNone    = "none"
	GeoProviderIPStack = "ipstack"
	GeoProviderMaxMind = "maxmind"
)

// AppConfig is the complete startup configuration.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env      string         `koanf:"env" validate:"required,oneof=dev prod"`
	Log      LogConfig      `koanf:"log"`
	Server   ServerConfig   `koanf:"server"`
	Zone     ZoneConfig     `koanf:"zone"`
	Balancer BalancerConfig `koanf:"balancer"`
	Geo      GeoConfig      `koanf:"geo"`
	Load     LoadConfig     `koanf:"load"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// LogConfig controls log verbosity: "debug", "info", "warn", or "error".
type LogConfig struct {
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

// ServerConfig describes the listeners. At least one of UDP and TCP must be
// enabled; both bind to the same port.
type ServerConfig struct {
	Port        int           `koanf:"port" validate:"gte=0,lte=65535"`
	UDP         bool          `koanf:"udp"`
	TCP         bool          `koanf:"tcp"`
	Workers     int           `koanf:"workers" validate:"gte=1"`
	ReadTimeout time.Duration `koanf:"read_timeout" validate:"gt=0"`
}

// ZoneConfig is the static part of the managed zone. Mail, NameServers,
// Alias and SOA.Admin are single labels under Apex.
type ZoneConfig struct {
	Apex         string    `koanf:"apex" validate:"required,fqdn"`
	Mail         string    `koanf:"mail" validate:"required,dnslabel"`
	NameServers  []string  `koanf:"nameservers" validate:"required,min=1,dive,dnslabel"`
	Alias        string    `koanf:"alias" validate:"omitempty,dnslabel"`
	TTL          uint32    `koanf:"ttl" validate:"gte=1"`
	MXPreference uint16    `koanf:"mx_preference"`
	SOA          SOAConfig `koanf:"soa"`
}

// SOAConfig holds the SOA timers in seconds.
type SOAConfig struct {
	Admin   string `koanf:"admin" validate:"required,dnslabel"`
	Serial  uint32 `koanf:"serial" validate:"gte=1"`
	Refresh uint32 `koanf:"refresh" validate:"gte=1"`
	Retry   uint32 `koanf:"retry" validate:"gte=1"`
	Expire  uint32 `koanf:"expire" validate:"gte=1"`
	Minimum uint32 `koanf:"minimum"`
}

// BalancerConfig describes the backend pool and how to select from it.
// BackendsFile, when set, lists one address per line and is appended to
// Backends. Policy may name several policies; one is picked at startup.
type BalancerConfig struct {
	Backends       []string      `koanf:"backends" validate:"dive,ipv4"`
	BackendsFile   string        `koanf:"backends_file"`
	Policy         []string      `koanf:"policy" validate:"required,min=1,dive,policy"`
	RefreshTimeout time.Duration `koanf:"refresh_timeout"`
}

// GeoConfig selects and configures the geo lookup used by the geo policy.
// Reference is the address distances are measured from.
type GeoConfig struct {
	Provider  string        `koanf:"provider" validate:"oneof=none ipstack maxmind"`
	Reference string        `koanf:"reference" validate:"omitempty,ip"`
	APIKey    string        `koanf:"api_key"`
	URL       string        `koanf:"url" validate:"omitempty,url"`
	Database  string        `koanf:"database"`
	CacheSize int           `koanf:"cache_size" validate:"gte=0"`
	Timeout   time.Duration `koanf:"timeout" validate:"gte=0"`
}

// LoadConfig points at the file of per-backend load values.
type LoadConfig struct {
	File string `koanf:"file"`
}

// MetricsConfig controls the HTTP endpoint serving /metrics and /healthz.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port" validate:"gte=0,lte=65535"`
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Env: "prod",
	Log: LogConfig{Level: "info"},
	Server: ServerConfig{
		Port:        5053,
		UDP:         true,
		TCP:         true,
		Workers:     256,
		ReadTimeout: 5 * time.Second,
	},
	Zone: ZoneConfig{
		Apex:         "example.com.",
		Mail:         "mail",
		NameServers:  []string{"ns1", "ns2"},
		Alias:        "www",
		TTL:          300,
		MXPreference: 10,
		SOA: SOAConfig{
			Admin:   "hostmaster",
			Serial:  201307231,
			Refresh: 3600,
			Retry:   10800,
			Expire:  86400,
			Minimum: 3600,
		},
	},
	Balancer: BalancerConfig{
		Backends:       []string{},
		Policy:         []string{"round-robin"},
		RefreshTimeout: 5 * time.Second,
	},
	Geo: GeoConfig{
		Provider:  GeoProviderNone,
		CacheSize: 1024,
		Timeout:   5 * time.Second,
	},
	Metrics: MetricsConfig{
		Enabled: false,
		Port:    9153,
	},
}

// envKeys maps DNS_* variable names (without prefix) to configuration keys.
var envKeys = map[string]string{
	"ENV":                      "env",
	"LOG_LEVEL":                "log.level",
	"SERVER_PORT":              "server.port",
	"SERVER_UDP":               "server.udp",
	"SERVER_TCP":               "server.tcp",
	"SERVER_WORKERS":           "server.workers",
	"SERVER_READ_TIMEOUT":      "server.read_timeout",
	"ZONE_APEX":                "zone.apex",
	"ZONE_MAIL":                "zone.mail",
	"ZONE_NAMESERVERS":         "zone.nameservers",
	"ZONE_ALIAS":               "zone.alias",
	"ZONE_TTL":                 "zone.ttl",
	"ZONE_MX_PREFERENCE":       "zone.mx_preference",
	"ZONE_SOA_ADMIN":           "zone.soa.admin",
	"ZONE_SOA_SERIAL":          "zone.soa.serial",
	"ZONE_SOA_REFRESH":         "zone.soa.refresh",
	"ZONE_SOA_RETRY":           "zone.soa.retry",
	"ZONE_SOA_EXPIRE":          "zone.soa.expire",
	"ZONE_SOA_MINIMUM":         "zone.soa.minimum",
	"BALANCER_BACKENDS":        "balancer.backends",
	"BALANCER_BACKENDS_FILE":   "balancer.backends_file",
	"BALANCER_POLICY":          "balancer.policy",
	"BALANCER_REFRESH_TIMEOUT": "balancer.refresh_timeout",
	"GEO_PROVIDER":             "geo.provider",
	"GEO_REFERENCE":            "geo.reference",
	"GEO_API_KEY":              "geo.api_key",
	"GEO_URL":                  "geo.url",
	"GEO_DATABASE":             "geo.database",
	"GEO_CACHE_SIZE":           "geo.cache_size",
	"GEO_TIMEOUT":              "geo.timeout",
	"LOAD_FILE":                "load.file",
	"METRICS_ENABLED":          "metrics.enabled",
	"METRICS_PORT":             "metrics.port",
}

// listKeys are split on commas and spaces when read from the environment.
var listKeys = map[string]bool{
	"zone.nameservers":  true,
	"balancer.backends": true,
	"balancer.policy":   true,
}

// transformEnv maps one environment variable onto a configuration key.
// Unknown variables yield an empty key and are skipped.
func transformEnv(key, value string) (string, any) {
	k, ok := envKeys[strings.TrimPrefix(key, EnvPrefix)]
	if !ok {
		return "", nil
	}
	value = strings.TrimSpace(value)
	if listKeys[k] {
		return k, strings.FieldsFunc(value, func(r rune) bool {
			return r == ' ' || r == ','
		})
	}
	return k, value
}

// envLoader loads environment variables with the prefix "DNS_".
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into k.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// parserFor picks a parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
}

// fileLoader loads a YAML, JSON or TOML config file.
var fileLoader = func(k *koanf.Koanf, path string) error {
	parser, err := parserFor(path)
	if err != nil {
		return err
	}
	return k.Load(file.Provider(path), parser)
}

var dnsLabel = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// validDNSLabel reports whether the field is a single RFC 1123 label.
func validDNSLabel(fl validator.FieldLevel) bool {
	return dnsLabel.MatchString(fl.Field().String())
}

// validPolicy reports whether the field names a known selection policy.
func validPolicy(fl validator.FieldLevel) bool {
	_, err := domain.ParsePolicy(fl.Field().String())
	return err == nil
}

// validTransports requires at least one enabled listener.
func validTransports(sl validator.StructLevel) {
	s := sl.Current().Interface().(ServerConfig)
	if !s.UDP && !s.TCP {
		sl.ReportError(s.UDP, "UDP", "udp", "transports", "")
	}
}

// registerValidation registers the custom "dnslabel", "policy" and
// "transports" rules.
var registerValidation = func(v *validator.Validate) error {
	if err := v.RegisterValidation("dnslabel", validDNSLabel); err != nil {
		return err
	}
	if err := v.RegisterValidation("policy", validPolicy); err != nil {
		return err
	}
	v.RegisterStructValidation(validTransports, ServerConfig{})
	return nil
}

// Options selects the sources Load reads beyond defaults and environment.
type Options struct {
	// File is a config file path; when empty DNS_CONFIG is consulted.
	File string
	// Flags are command-line overrides keyed by configuration key.
	Flags map[string]any
}

// Load builds the configuration from every source and validates it.
func Load(opts Options) (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	path := opts.File
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path != "" {
		if err := fileLoader(k, path); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	if len(opts.Flags) > 0 {
		if err := k.Load(confmap.Provider(opts.Flags, "."), nil); err != nil {
			return nil, fmt.Errorf("error loading flags: %w", err)
		}
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if cfg.Balancer.BackendsFile != "" {
		extra, err := readBackendsFile(cfg.Balancer.BackendsFile)
		if err != nil {
			return nil, err
		}
		cfg.Balancer.Backends = append(cfg.Balancer.Backends, extra...)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

// check enforces rules spanning several sections.
func (c *AppConfig) check() error {
	if len(c.Balancer.Backends) == 0 {
		return domain.ErrEmptyPool
	}
	if utils.IsPublicSuffix(c.Zone.Apex) {
		return fmt.Errorf("zone apex %q is a public suffix", c.Zone.Apex)
	}
	var errs []error
	for _, name := range c.Balancer.Policy {
		p, _ := domain.ParsePolicy(name)
		switch p {
		case domain.PolicyGeo:
			if c.Geo.Provider == GeoProviderNone {
				errs = append(errs, errors.New("geo policy requires geo.provider"))
			}
			if c.Geo.Reference == "" {
				errs = append(errs, errors.New("geo policy requires geo.reference"))
			}
			if c.Geo.Provider == GeoProviderIPStack && c.Geo.APIKey == "" {
				errs = append(errs, errors.New("ipstack provider requires geo.api_key"))
			}
		case domain.PolicyLoad:
			if c.Load.File == "" {
				errs = append(errs, errors.New("load policy requires load.file"))
			}
		}
	}
	return errors.Join(errs...)
}

// ZoneParams converts the zone section into builder parameters.
func (c *AppConfig) ZoneParams() domain.ZoneParams {
	return domain.ZoneParams{
		Apex:         c.Zone.Apex,
		Mail:         c.Zone.Mail,
		NameServers:  append([]string(nil), c.Zone.NameServers...),
		Alias:        c.Zone.Alias,
		TTL:          c.Zone.TTL,
		MXPreference: c.Zone.MXPreference,
		SOA: domain.SOAParams{
			Admin:   c.Zone.SOA.Admin,
			Serial:  c.Zone.SOA.Serial,
			Refresh: c.Zone.SOA.Refresh,
			Retry:   c.Zone.SOA.Retry,
			Expire:  c.Zone.SOA.Expire,
			Minimum: c.Zone.SOA.Minimum,
		},
	}
}

// readBackendsFile returns the non-blank, non-comment lines of path.
func readBackendsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading backends file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading backends file: %w", err)
	}
	return out, nil
}
