package models

// MConfig Structure
type MConfig struct {
	Name        string            `yaml:"name"`
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	LogLevel    string            `yaml:"log_level"`
	LogFormat   string            `yaml:"log_format"`
	LogOutput   string            `yaml:"log_output"`
	LogMaxAge   int               `yaml:"log_max_age"`
	GrpcHost    string            `yaml:"grpc_host"`
	GrpcPort    int               `yaml:"grpc_port"`
	Network     MNetworkConfig    `yaml:"network"`
	DataSource  MDataSourceConfig `yaml:"data_source"`
	Chart       MChartConfig      `yaml:"chart"`
	TickersFile string            `yaml:"tickers_file"`
	Tickers     []MTicker         `yaml:"tickers"`
}

type MNetworkConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Proxies           []string `yaml:"proxies"`
	RequestTimeout    int      `yaml:"timeout"`
	MaxRetries        int      `yaml:"retries"`
	UserAgent         string   `yaml:"user_agent"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
}

type MDataSourceConfig struct {
	Interval string          `yaml:"interval"`
	Sources  []MSourceConfig `yaml:"sources"`
}

// MSourceConfig configures one acquisition collaborator. Sources are tried in
// the order they are listed.
type MSourceConfig struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`                             // "yahoo" or "file"
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"` // yahoo only, optional
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty"`           // file only
	Format   string `json:"format,omitempty" yaml:"format,omitempty"`     // file only: "parquet" or "csv"
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"` // file only: exchange zone, defaults to the symbol calendar
}

type MChartConfig struct {
	DefaultBinMinutes int     `yaml:"default_bin_minutes"`
	MinBinMinutes     int     `yaml:"min_bin_minutes"`
	MaxBinMinutes     int     `yaml:"max_bin_minutes"`
	DefaultMargin     float64 `yaml:"default_margin"`
	VolumeScale       float64 `yaml:"volume_scale"`
	RefreshSeconds    int     `yaml:"refresh_seconds"`
	RefreshLimit      int     `yaml:"refresh_limit"`
	Height            int     `yaml:"height"`
	Template          string  `yaml:"template"`
}
