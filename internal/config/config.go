package config

import "time"

// Default locations, relative to the directory the configuration was loaded from.
const (
	DefaultScriptsDir = "scripts"
	DefaultStateFile  = ".onboard/state.json"
	DefaultLogDir     = ".onboard/logs"
	DefaultReportDir  = ".onboard/reports"

	DefaultSSHUser       = "root"
	DefaultSSHPort       = 22
	DefaultHCloudToken   = "HCLOUD_TOKEN"
	DefaultS3AccessKey   = "AWS_ACCESS_KEY_ID"
	DefaultS3SecretKey   = "AWS_SECRET_ACCESS_KEY"
	DefaultS3Region      = "us-east-1"
	DefaultS3ReportsPath = "onboarding-reports"
)

// Config is the onboarding configuration.
type Config struct {
	Node NodeConfig `mapstructure:"node" yaml:"node"`

	// ScriptsDir holds the phase scripts of the built-in phase table.
	ScriptsDir string `mapstructure:"scripts_dir" yaml:"scripts_dir"`
	StateFile  string `mapstructure:"state_file" yaml:"state_file"`
	LogDir     string `mapstructure:"log_dir" yaml:"log_dir"`
	ReportDir  string `mapstructure:"report_dir" yaml:"report_dir"`

	// Kubeconfig is used by the kube-node-ready action. Empty means the
	// KUBECONFIG environment variable or ~/.kube/config.
	Kubeconfig string `mapstructure:"kubeconfig" yaml:"kubeconfig"`

	// MetricsFile, when set, receives Prometheus text-format metrics after each run.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`

	SSH    SSHConfig    `mapstructure:"ssh" yaml:"ssh"`
	HCloud HCloudConfig `mapstructure:"hcloud" yaml:"hcloud"`
	Report ReportConfig `mapstructure:"report" yaml:"report"`

	// Phases overrides entries of the built-in phase table by id.
	Phases []PhaseOverride `mapstructure:"phases" yaml:"phases"`

	// BaseDir is the directory relative paths are resolved against.
	BaseDir string `mapstructure:"-" yaml:"-"`
	// Source is the file the configuration was read from, empty for defaults.
	Source string `mapstructure:"-" yaml:"-"`
}

// NodeConfig identifies the node being onboarded.
type NodeConfig struct {
	Name   string            `mapstructure:"name" yaml:"name"`
	Host   string            `mapstructure:"host" yaml:"host"`
	Role   string            `mapstructure:"role" yaml:"role"`
	Labels map[string]string `mapstructure:"labels" yaml:"labels"`
}

// SSHConfig configures remote phase execution on the node.
type SSHConfig struct {
	User    string `mapstructure:"user" yaml:"user"`
	Port    int    `mapstructure:"port" yaml:"port"`
	KeyFile string `mapstructure:"key_file" yaml:"key_file"`
	// KnownHosts is a known_hosts file used to verify the node's host key.
	// Empty disables host key verification.
	KnownHosts string `mapstructure:"known_hosts" yaml:"known_hosts"`
}

// HCloudConfig configures the hcloud-server-running action.
type HCloudConfig struct {
	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `mapstructure:"token_env" yaml:"token_env"`
}

// ReportConfig configures report publishing.
type ReportConfig struct {
	S3 *S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config configures upload of rendered reports to an S3-compatible bucket.
type S3Config struct {
	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint"`
	Region       string `mapstructure:"region" yaml:"region"`
	Bucket       string `mapstructure:"bucket" yaml:"bucket"`
	Prefix       string `mapstructure:"prefix" yaml:"prefix"`
	AccessKeyEnv string `mapstructure:"access_key_env" yaml:"access_key_env"`
	SecretKeyEnv string `mapstructure:"secret_key_env" yaml:"secret_key_env"`
	// PathStyle addresses the bucket in the URL path, as MinIO expects.
	PathStyle bool `mapstructure:"path_style" yaml:"path_style"`
}

// PhaseOverride replaces selected fields of one built-in phase. Unset fields
// keep the built-in value.
type PhaseOverride struct {
	ID              string        `mapstructure:"id" yaml:"id"`
	Kind            string        `mapstructure:"kind" yaml:"kind"`
	Command         string        `mapstructure:"command" yaml:"command"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	RollbackCommand string        `mapstructure:"rollback_command" yaml:"rollback_command"`
	RollbackArgs    []string      `mapstructure:"rollback_args" yaml:"rollback_args"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries         *int          `mapstructure:"retries" yaml:"retries"`
	Remote          *bool         `mapstructure:"remote" yaml:"remote"`
	Skippable       *bool         `mapstructure:"skippable" yaml:"skippable"`
	AutoFix         *bool         `mapstructure:"auto_fix" yaml:"auto_fix"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ScriptsDir == "" {
		c.ScriptsDir = DefaultScriptsDir
	}
	if c.StateFile == "" {
		c.StateFile = DefaultStateFile
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.ReportDir == "" {
		c.ReportDir = DefaultReportDir
	}
	if c.SSH.User == "" {
		c.SSH.User = DefaultSSHUser
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if c.HCloud.TokenEnv == "" {
		c.HCloud.TokenEnv = DefaultHCloudToken
	}
	if s3 := c.Report.S3; s3 != nil {
		if s3.Region == "" {
			s3.Region = DefaultS3Region
		}
		if s3.Prefix == "" {
			s3.Prefix = DefaultS3ReportsPath
		}
		if s3.AccessKeyEnv == "" {
			s3.AccessKeyEnv = DefaultS3AccessKey
		}
		if s3.SecretKeyEnv == "" {
			s3.SecretKeyEnv = DefaultS3SecretKey
		}
	}
}

// Path resolves p against the configuration's base directory.
func (c *Config) Path(p string) string {
	return resolve(c.BaseDir, p)
}

// StatePath returns the resolved state file path.
func (c *Config) StatePath() string { return c.Path(c.StateFile) }

// LogPath returns the resolved log directory.
func (c *Config) LogPath() string { return c.Path(c.LogDir) }

// ReportPath returns the resolved report directory.
func (c *Config) ReportPath() string { return c.Path(c.ReportDir) }

// ScriptsPath returns the resolved scripts directory.
func (c *Config) ScriptsPath() string { return c.Path(c.ScriptsDir) }
