package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host     string `env:"HOST,required=true"`
	GrpcPort int    `env:"GRPC_PORT,required=true"`
	HttpPort int    `env:"HTTP_PORT,required=true"`

	BadgerFilepath   string `env:"BADGER_FILEPATH,required=true"`
	BadgerSyncWrites bool   `env:"BADGER_SYNC_WRITES,default=true"`
	BlugeFilepath    string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel         string `env:"LOG_LEVEL,required=true"`

	JwtSecret         string        `env:"JWT_SECRET,required=true"`
	JwtIssuer         string        `env:"JWT_ISSUER,default=skillxchange"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	HandshakeTimeout  time.Duration `env:"HANDSHAKE_TIMEOUT,default=5s"`

	ConnectionBufferSize int     `env:"CONNECTION_BUFFER_SIZE,default=64"`
	PresenceBufferSize   int     `env:"PRESENCE_BUFFER_SIZE,default=1024"`
	HistoryLimit         int     `env:"HISTORY_LIMIT,default=50"`
	MaxTextLength        int     `env:"MAX_TEXT_LENGTH,default=2000"`
	SendRatePerSecond    float64 `env:"SEND_RATE_PER_SECOND,default=5"`
	SendBurst            int     `env:"SEND_BURST,default=10"`
	CensorCharacter      string  `env:"CENSOR_CHARACTER,default=*"`

	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=15s"`
}

func (c Config) GrpcAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GrpcPort)
}

func (c Config) HttpAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HttpPort)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
