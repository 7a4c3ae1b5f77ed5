package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/lbdns/internal/dns/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DNS_BALANCER_BACKENDS", "10.0.0.1")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5053, cfg.Server.Port)
	assert.True(t, cfg.Server.UDP)
	assert.True(t, cfg.Server.TCP)
	assert.Equal(t, 256, cfg.Server.Workers)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "example.com.", cfg.Zone.Apex)
	assert.Equal(t, []string{"ns1", "ns2"}, cfg.Zone.NameServers)
	assert.EqualValues(t, 300, cfg.Zone.TTL)
	assert.EqualValues(t, 201307231, cfg.Zone.SOA.Serial)
	assert.Equal(t, "hostmaster", cfg.Zone.SOA.Admin)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.Balancer.Backends)
	assert.Equal(t, []string{"round-robin"}, cfg.Balancer.Policy)
	assert.Equal(t, 5*time.Second, cfg.Balancer.RefreshTimeout)
	assert.Equal(t, GeoProviderNone, cfg.Geo.Provider)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DNS_ENV", "dev")
	t.Setenv("DNS_LOG_LEVEL", "debug")
	t.Setenv("DNS_SERVER_PORT", "9953")
	t.Setenv("DNS_SERVER_TCP", "false")
	t.Setenv("DNS_SERVER_READ_TIMEOUT", "250ms")
	t.Setenv("DNS_ZONE_APEX", "lb.example.org")
	t.Setenv("DNS_ZONE_NAMESERVERS", "dns1, dns2 dns3")
	t.Setenv("DNS_ZONE_TTL", "60")
	t.Setenv("DNS_BALANCER_BACKENDS", "10.0.0.1,10.0.0.2 10.0.0.3")
	t.Setenv("DNS_BALANCER_POLICY", "load round")
	t.Setenv("DNS_LOAD_FILE", "/var/run/load.txt")
	t.Setenv("DNS_METRICS_ENABLED", "true")
	t.Setenv("DNS_UNRELATED", "ignored")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9953, cfg.Server.Port)
	assert.True(t, cfg.Server.UDP)
	assert.False(t, cfg.Server.TCP)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.ReadTimeout)
	assert.Equal(t, "lb.example.org", cfg.Zone.Apex)
	assert.Equal(t, []string{"dns1", "dns2", "dns3"}, cfg.Zone.NameServers)
	assert.EqualValues(t, 60, cfg.Zone.TTL)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, cfg.Balancer.Backends)
	assert.Equal(t, []string{"load", "round"}, cfg.Balancer.Policy)
	assert.Equal(t, "/var/run/load.txt", cfg.Load.File)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_Files(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "lbdns.yaml",
			content: `
zone:
  apex: lb.example.net
balancer:
  backends: ["192.0.2.10", "192.0.2.11"]
  policy: [geo]
geo:
  provider: maxmind
  reference: 198.51.100.7
`,
		},
		{
			name: "json",
			file: "lbdns.json",
			content: `{"zone": {"apex": "lb.example.net"},
 "balancer": {"backends": ["192.0.2.10", "192.0.2.11"], "policy": ["geo"]},
 "geo": {"provider": "maxmind", "reference": "198.51.100.7"}}`,
		},
		{
			name: "toml",
			file: "lbdns.toml",
			content: `
[zone]
apex = "lb.example.net"
[balancer]
backends = ["192.0.2.10", "192.0.2.11"]
policy = ["geo"]
[geo]
provider = "maxmind"
reference = "198.51.100.7"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			cfg, err := Load(Options{File: path})
			require.NoError(t, err)
			assert.Equal(t, "lb.example.net", cfg.Zone.Apex)
			assert.Equal(t, []string{"192.0.2.10", "192.0.2.11"}, cfg.Balancer.Backends)
			assert.Equal(t, []string{"geo"}, cfg.Balancer.Policy)
			assert.Equal(t, GeoProviderMaxMind, cfg.Geo.Provider)
			assert.Equal(t, "198.51.100.7", cfg.Geo.Reference)
			// untouched keys keep their defaults
			assert.Equal(t, "mail", cfg.Zone.Mail)
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "lbdns.yaml", `
server:
  port: 1000
log:
  level: warn
balancer:
  backends: ["192.0.2.1"]
`)
	t.Setenv(ConfigEnv, path)
	t.Setenv("DNS_SERVER_PORT", "2000")

	cfg, err := Load(Options{Flags: map[string]any{"server.udp": false}})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level, "file overrides defaults")
	assert.Equal(t, 2000, cfg.Server.Port, "env overrides file")
	assert.False(t, cfg.Server.UDP, "flags override everything")

	cfg, err = Load(Options{Flags: map[string]any{"server.port": 3000}})
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoad_BackendsFile(t *testing.T) {
	path := writeFile(t, "ip.cfg", "# pool\n10.0.0.2\n\n  10.0.0.3  # rack b\n")
	t.Setenv("DNS_BALANCER_BACKENDS", "10.0.0.1")
	t.Setenv("DNS_BALANCER_BACKENDS_FILE", path)

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, cfg.Balancer.Backends)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		opts    Options
		wantErr string
		wantIs  error
	}{
		{
			name:   "no backends",
			wantIs: domain.ErrEmptyPool,
		},
		{
			name:    "backend is not IPv4",
			env:     map[string]string{"DNS_BALANCER_BACKENDS": "2001:db8::1"},
			wantErr: "ipv4",
		},
		{
			name:    "unknown policy",
			env:     map[string]string{"DNS_BALANCER_POLICY": "random"},
			wantErr: "policy",
		},
		{
			name:    "no transport enabled",
			env:     map[string]string{"DNS_SERVER_UDP": "false", "DNS_SERVER_TCP": "false"},
			wantErr: "transports",
		},
		{
			name:    "name server is not a label",
			env:     map[string]string{"DNS_ZONE_NAMESERVERS": "ns1.other"},
			wantErr: "dnslabel",
		},
		{
			name:    "apex is a public suffix",
			env:     map[string]string{"DNS_ZONE_APEX": "co.uk"},
			wantErr: "public suffix",
		},
		{
			name:    "geo policy without provider",
			env:     map[string]string{"DNS_BALANCER_POLICY": "geo", "DNS_GEO_REFERENCE": "192.0.2.1"},
			wantErr: "geo.provider",
		},
		{
			name:    "ipstack without key",
			env:     map[string]string{"DNS_BALANCER_POLICY": "geo", "DNS_GEO_PROVIDER": "ipstack", "DNS_GEO_REFERENCE": "192.0.2.1"},
			wantErr: "geo.api_key",
		},
		{
			name:    "load policy without file",
			env:     map[string]string{"DNS_BALANCER_POLICY": "load"},
			wantErr: "load.file",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"DNS_LOG_LEVEL": "verbose"},
			wantErr: "Level",
		},
		{
			name:    "unsupported config file",
			opts:    Options{File: "/etc/lbdns.ini"},
			wantErr: "unsupported config file type",
		},
		{
			name:    "missing backends file",
			env:     map[string]string{"DNS_BALANCER_BACKENDS_FILE": "/nonexistent/ip.cfg"},
			wantErr: "backends file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantIs == nil {
				t.Setenv("DNS_BALANCER_BACKENDS", "10.0.0.1")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(tt.opts)
			require.Error(t, err)
			assert.Nil(t, cfg)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_LoaderErrors(t *testing.T) {
	t.Setenv("DNS_BALANCER_BACKENDS", "10.0.0.1")
	boom := errors.New("boom")

	tests := []struct {
		name    string
		patch   func() func()
		wantErr string
	}{
		{
			name: "defaults",
			patch: func() func() {
				orig := defaultLoader
				defaultLoader = func(*koanf.Koanf) error { return boom }
				return func() { defaultLoader = orig }
			},
			wantErr: "error loading default config",
		},
		{
			name: "env",
			patch: func() func() {
				orig := envLoader
				envLoader = func(*koanf.Koanf) error { return boom }
				return func() { envLoader = orig }
			},
			wantErr: "error loading env",
		},
		{
			name: "validation registration",
			patch: func() func() {
				orig := registerValidation
				registerValidation = func(*validator.Validate) error { return boom }
				return func() { registerValidation = orig }
			},
			wantErr: "error registering validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restore := tt.patch()
			defer restore()
			_, err := Load(Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTransformEnv(t *testing.T) {
	tests := []struct {
		key, value string
		wantKey    string
		wantValue  any
	}{
		{"DNS_LOG_LEVEL", " debug ", "log.level", "debug"},
		{"DNS_ZONE_SOA_SERIAL", "7", "zone.soa.serial", "7"},
		{"DNS_BALANCER_POLICY", "geo,load", "balancer.policy", []string{"geo", "load"}},
		{"DNS_BALANCER_BACKENDS", "", "balancer.backends", []string{}},
		{"DNS_NOPE", "x", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			k, v := transformEnv(tt.key, tt.value)
			assert.Equal(t, tt.wantKey, k)
			if tt.wantKey != "" {
				assert.Equal(t, tt.wantValue, v)
			}
		})
	}
}

func TestAppConfig_ZoneParams(t *testing.T) {
	cfg := DEFAULT_APP_CONFIG
	p := cfg.ZoneParams()
	assert.Equal(t, "example.com.", p.Apex)
	assert.Equal(t, "mail", p.Mail)
	assert.Equal(t, []string{"ns1", "ns2"}, p.NameServers)
	assert.Equal(t, "www", p.Alias)
	assert.EqualValues(t, 300, p.TTL)
	assert.EqualValues(t, 10, p.MXPreference)
	assert.Equal(t, domain.SOAParams{
		Admin: "hostmaster", Serial: 201307231, Refresh: 3600, Retry: 10800, Expire: 86400, Minimum: 3600,
	}, p.SOA)

	// the returned slice is independent of the config
	p.NameServers[0] = "changed"
	assert.Equal(t, "ns1", cfg.Zone.NameServers[0])
}
