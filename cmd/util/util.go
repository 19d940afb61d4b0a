package util

import (
	"strings"

	"github.com/ValentinKolb/dDAP/lib/functions"
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read DDAP_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("ddap")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Server flags
// --------------------------------------------------------------------------

// SetupServerFlags adds the flags of every common.ServerConfig field to a command
func SetupServerFlags(cmd *cobra.Command) {
	d := common.DefaultServerConfig()
	flags := cmd.PersistentFlags()

	key := "endpoint"
	flags.String(key, d.Endpoint, WrapString("The address on which the HTTP API will listen (e.g. 0.0.0.0:8080)"))

	key = "log-level"
	flags.String(key, d.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "timeout"
	flags.Int64(key, d.TimeoutSecond, WrapString("Deadline of one response in seconds. A response that takes longer is truncated with an error (0 = no deadline)"))

	key = "data-dir"
	flags.String(key, d.DataDir, WrapString("Directory holding the dataset documents (<id>.json)"))

	key = "cache-dir"
	flags.String(key, d.CacheDir, WrapString("Directory of the function result cache. An empty value disables the cache"))

	key = "cache-prefix"
	flags.String(key, d.CachePrefix, WrapString("Prefix of the cache entry file names"))

	key = "cache-size-mb"
	flags.Int64(key, d.CacheSizeMB, WrapString("Size budget of the cache directory in MB (0 = unlimited)"))

	key = "cache-trust-unknown"
	flags.Bool(key, d.CacheTrustUnknown, WrapString("Treat cache entries of datasets with an unknown modification time as fresh"))

	key = "response-limit-kb"
	flags.Int64(key, d.ResponseLimitKB, WrapString("Largest data response in KB (0 = unlimited)"))

	key = "encoding"
	flags.String(key, d.Encoding, WrapString("Wire encoding of data responses (xdr, dap4)"))

	key = "wire-order"
	flags.String(key, d.WireOrder, WrapString("Byte order of the dap4 encoding (native, big, little)"))

	key = "compression"
	flags.Bool(key, d.Compression, WrapString("Gzip response bodies for clients that accept it"))

	key = "max-vector-length"
	flags.Int(key, d.MaxVectorLength, WrapString("Longest vector accepted when decoding data (0 = unlimited)"))

	key = "server-version"
	flags.String(key, d.ServerVersion, WrapString("Server version sent in the XDODS-Server and XOPeNDAP-Server headers"))

	key = "protocol-version"
	flags.String(key, d.ProtocolVersion, WrapString("DAP protocol version sent in the XDAP header"))

	key = "content-id-domain"
	flags.String(key, d.ContentIDDomain, WrapString("Domain of the Content-Id of multipart responses"))
}

// GetServerConfig reads the server configuration from viper
func GetServerConfig() common.ServerConfig {
	return common.ServerConfig{
		Endpoint:          viper.GetString("endpoint"),
		LogLevel:          viper.GetString("log-level"),
		TimeoutSecond:     viper.GetInt64("timeout"),
		DataDir:           viper.GetString("data-dir"),
		CacheDir:          viper.GetString("cache-dir"),
		CachePrefix:       viper.GetString("cache-prefix"),
		CacheSizeMB:       viper.GetInt64("cache-size-mb"),
		CacheTrustUnknown: viper.GetBool("cache-trust-unknown"),
		ResponseLimitKB:   viper.GetInt64("response-limit-kb"),
		Encoding:          viper.GetString("encoding"),
		WireOrder:         viper.GetString("wire-order"),
		Compression:       viper.GetBool("compression"),
		MaxVectorLength:   viper.GetInt("max-vector-length"),
		ServerVersion:     viper.GetString("server-version"),
		ProtocolVersion:   viper.GetString("protocol-version"),
		ContentIDDomain:   viper.GetString("content-id-domain"),
	}
}

// NewRegistry returns a function registry with the built-in functions
func NewRegistry() (functions.IFunctionRegistry, error) {
	registry := functions.NewRegistry()
	if err := functions.RegisterBuiltins(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

// --------------------------------------------------------------------------
// Client flags
// --------------------------------------------------------------------------

// SetupClientFlags adds the connection flags of a DAP client to a command
func SetupClientFlags(cmd *cobra.Command) {
	d := common.DefaultClientConfig()

	key := "client-timeout"
	cmd.PersistentFlags().Int64(key, d.TimeoutSecond, WrapString("The timeout in seconds of one request"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, strings.Join(d.Endpoints, ","), WrapString("The base URL of the DAP server. Multiple endpoints can be specified as a comma-separated list and are used round-robin"))

	key = "retries"
	cmd.PersistentFlags().Int(key, d.RetryCount, WrapString("How many times to try a request"))

	key = "max-vector-length"
	cmd.PersistentFlags().Int(key, d.MaxVectorLength, WrapString("Longest vector accepted when decoding data"))
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Endpoints:       strings.Split(viper.GetString("endpoints"), ","),
		TimeoutSecond:   viper.GetInt64("client-timeout"),
		RetryCount:      viper.GetInt("retries"),
		MaxVectorLength: viper.GetInt("max-vector-length"),
	}
}
