package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_ADDR is the gRPC address of a running chat server, the suite is skipped without it
	ServerAddr string `envconfig:"E2E_SERVER_ADDR"`
	HTTPAddr   string `envconfig:"E2E_HTTP_ADDR" default:"http://localhost:8080"`
	JwtSecret  string `envconfig:"E2E_JWT_SECRET"`
	JwtIssuer  string `envconfig:"E2E_JWT_ISSUER" default:"skillxchange"`
	// E2E_DEBUG_JSON dumps every frame crossing the stream
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool          `envconfig:"E2E_COLOURS" default:"true"`
	Timeout time.Duration `envconfig:"E2E_TIMEOUT" default:"10s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
