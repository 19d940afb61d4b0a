package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dDAP/lib/cache"
	"github.com/ValentinKolb/dDAP/lib/errors"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// Response encodings
const (
	EncodingXDR  = "xdr"
	EncodingDAP4 = "dap4"
)

// ServerConfig holds all configuration parameters of a server and of the
// one-shot responder
type ServerConfig struct {
	// HTTP api settings
	Endpoint string

	// Logging configuration
	LogLevel    string
	LogToStderr bool

	// TimeoutSecond is the deadline of one response (0 = no deadline)
	TimeoutSecond int64

	// DataDir holds the dataset documents
	DataDir string

	// Function result cache
	CacheDir          string
	CachePrefix       string
	CacheSizeMB       int64
	CacheTrustUnknown bool

	// ResponseLimitKB is the largest response sent (0 = unlimited)
	ResponseLimitKB int64

	// Wire settings
	Encoding        string
	WireOrder       string
	Compression     bool
	MaxVectorLength int

	// Versions and identifiers sent in responses
	ServerVersion   string
	ProtocolVersion string
	ContentIDDomain string
}

// DefaultServerConfig returns the defaults used by the command line
func DefaultServerConfig() ServerConfig {
	defaults := cache.DefaultConfig()
	return ServerConfig{
		Endpoint:        ":8080",
		LogLevel:        "info",
		DataDir:         "./data",
		CacheDir:        defaults.Dir,
		CachePrefix:     defaults.Prefix,
		CacheSizeMB:     defaults.SizeLimit / (1024 * 1024),
		Encoding:        EncodingXDR,
		WireOrder:       "native",
		MaxVectorLength: 1 << 28,
		ServerVersion:   "ddap/1.0",
		ProtocolVersion: "3.2",
		ContentIDDomain: "opendap.org",
	}
}

// Timeout returns the response deadline
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// ResponseLimit returns the response size limit in bytes (0 = unlimited)
func (c *ServerConfig) ResponseLimit() int64 {
	return c.ResponseLimitKB * 1024
}

// CacheEnabled reports whether function results are cached
func (c *ServerConfig) CacheEnabled() bool {
	return c.CacheDir != ""
}

// ToCacheConfig derives the options of the function result cache
func (c *ServerConfig) ToCacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Dir = c.CacheDir
	cfg.Prefix = c.CachePrefix
	cfg.SizeLimit = c.CacheSizeMB * 1024 * 1024
	cfg.TrustUnknown = c.CacheTrustUnknown
	return cfg
}

// Validate checks the settings that cannot be checked by their consumers
// before the first request
func (c *ServerConfig) Validate() error {
	switch c.Encoding {
	case EncodingXDR, EncodingDAP4:
	default:
		return errors.Newf(errors.Internal, "invalid encoding %q, must be one of %s, %s", c.Encoding, EncodingXDR, EncodingDAP4)
	}
	switch strings.ToLower(c.WireOrder) {
	case "native", "big", "little", "big-endian", "little-endian":
	default:
		return errors.Newf(errors.Internal, "invalid wire order %q, must be one of native, big, little", c.WireOrder)
	}
	if c.TimeoutSecond < 0 || c.ResponseLimitKB < 0 || c.CacheSizeMB < 0 || c.MaxVectorLength < 0 {
		return errors.New(errors.Internal, "timeout, response limit, cache size and vector length must not be negative")
	}
	if c.CacheEnabled() && c.CachePrefix == "" {
		return errors.New(errors.Internal, "the cache prefix must not be empty")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	limit := func(v int64, unit string) string {
		if v == 0 {
			return "unlimited"
		}
		return fmt.Sprintf("%d %s", v, unit)
	}

	// Server settings
	addSection("Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", limit(c.TimeoutSecond, "sec"))
	addField("Data Directory", c.DataDir)
	addField("Response Limit", limit(c.ResponseLimitKB, "KB"))
	addField("Server Version", c.ServerVersion)
	addField("Protocol Version", c.ProtocolVersion)

	// Wire settings
	addSection("Wire")
	addField("Encoding", c.Encoding)
	if c.Encoding == EncodingDAP4 {
		addField("Byte Order", c.WireOrder)
	}
	addField("Compression", fmt.Sprintf("%t", c.Compression))
	addField("Max Vector Length", limit(int64(c.MaxVectorLength), "elements"))
	addField("Content-Id Domain", c.ContentIDDomain)

	// Function result cache
	addSection("Function Cache")
	if c.CacheEnabled() {
		addField("Directory", c.CacheDir)
		addField("Prefix", c.CachePrefix)
		addField("Size Limit", limit(c.CacheSizeMB, "MB"))
		addField("Trust Unknown Mtime", fmt.Sprintf("%t", c.CacheTrustUnknown))
	} else {
		addField("Directory", "disabled")
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)
	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the configuration of a DAP client
type ClientConfig struct {
	// Endpoints are the base URLs of the servers, used round-robin
	Endpoints []string
	// TimeoutSecond is the deadline of one request (0 = no deadline)
	TimeoutSecond int64
	// RetryCount is the number of attempts per request
	RetryCount int
	// MaxVectorLength bounds the length of decoded vectors
	MaxVectorLength int
}

// DefaultClientConfig returns the defaults used by the command line
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoints:       []string{"http://localhost:8080"},
		TimeoutSecond:   60,
		RetryCount:      3,
		MaxVectorLength: 1 << 28,
	}
}
