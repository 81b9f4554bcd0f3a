package global

import (
	"time"

	"CProject/tools"
	"CProject/tools/ids"
)

// AppConfig is the full gateway configuration, loaded once from the
// environment. Zero values are normalized to defaults by norm().
type AppConfig struct {
	Gateway  GatewayConfig
	Throttle ThrottleConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Nats     NatsConfig
	Auth     AuthConfig
}

type GatewayConfig struct {
	ID            string        // node id, participates in conn ref generation
	Addr          string        // HTTP/WS listen address
	SendQueueSize int           // per-connection outbound queue
	PingInterval  time.Duration // ws keepalive ping period
	WriteWait     time.Duration // per-write deadline
	MaxOccupancy  int           // default per-room capacity; <=0 unlimited
}

type ThrottleConfig struct {
	Interval   time.Duration // min gap between forwarded ephemeral updates per key
	SweepEvery time.Duration // background sweep period
	StaleAfter time.Duration // entries idle beyond this are swept
}

type RedisConfig struct {
	Addr     string // empty disables the snapshot cache
	Password string
	DB       int
	CacheTTL time.Duration
}

type MongoConfig struct {
	URI      string // empty selects the in-memory store
	Database string
	Username string
	Password string
	PoolSize int
}

type NatsConfig struct {
	Servers []string // empty disables the integration event bridge
	Name    string
}

type AuthConfig struct {
	JWTSecret string // empty disables token verification (dev mode)
}

var conf *AppConfig

// Load reads configuration from the environment. Safe to call once from main.
func Load() *AppConfig {
	c := &AppConfig{
		Gateway: GatewayConfig{
			ID:            tools.GetEnv("GATEWAY_ID", ""),
			Addr:          tools.GetEnv("GATEWAY_ADDR", ""),
			SendQueueSize: tools.GetEnvInt("SEND_QUEUE_SIZE", 0),
			PingInterval:  tools.GetEnvDur("PING_INTERVAL", 0),
			WriteWait:     tools.GetEnvDur("WRITE_WAIT", 0),
			MaxOccupancy:  tools.GetEnvInt("ROOM_MAX_OCCUPANCY", 0),
		},
		Throttle: ThrottleConfig{
			Interval:   tools.GetEnvDur("THROTTLE_INTERVAL", 0),
			SweepEvery: tools.GetEnvDur("THROTTLE_SWEEP_EVERY", 0),
			StaleAfter: tools.GetEnvDur("THROTTLE_STALE_AFTER", 0),
		},
		Redis: RedisConfig{
			Addr:     tools.GetEnv("REDIS_ADDR", ""),
			Password: tools.GetEnv("REDIS_PASSWORD", ""),
			DB:       tools.GetEnvInt("REDIS_DB", 0),
			CacheTTL: tools.GetEnvDur("SNAPSHOT_CACHE_TTL", 0),
		},
		Mongo: MongoConfig{
			URI:      tools.GetEnv("MONGO_URI", ""),
			Database: tools.GetEnv("MONGO_DATABASE", "collab"),
			Username: tools.GetEnv("MONGO_USERNAME", ""),
			Password: tools.GetEnv("MONGO_PASSWORD", ""),
			PoolSize: tools.GetEnvInt("MONGO_POOL_SIZE", 20),
		},
		Nats: NatsConfig{
			Servers: tools.SplitCSV(tools.GetEnv("NATS_SERVERS", "")),
			Name:    tools.GetEnv("NATS_NAME", "collab-gateway"),
		},
		Auth: AuthConfig{
			JWTSecret: tools.GetEnv("JWT_SECRET", ""),
		},
	}
	c.norm()
	conf = c
	return c
}

func (c *AppConfig) norm() {
	if c.Gateway.ID == "" {
		c.Gateway.ID = "collab_gw-1"
	}
	if c.Gateway.Addr == "" {
		c.Gateway.Addr = ":8080"
	}
	if c.Gateway.SendQueueSize <= 0 {
		c.Gateway.SendQueueSize = 256
	}
	if c.Gateway.PingInterval <= 0 {
		c.Gateway.PingInterval = 25 * time.Second
	}
	if c.Gateway.WriteWait <= 0 {
		c.Gateway.WriteWait = 10 * time.Second
	}
	if c.Throttle.Interval <= 0 {
		c.Throttle.Interval = 16 * time.Millisecond
	}
	if c.Throttle.SweepEvery <= 0 {
		c.Throttle.SweepEvery = 60 * time.Second
	}
	if c.Throttle.StaleAfter <= 0 {
		c.Throttle.StaleAfter = 5 * time.Minute
	}
	if c.Redis.CacheTTL <= 0 {
		c.Redis.CacheTTL = 30 * time.Second
	}
}

// Conf returns the loaded configuration (Load must run first).
func Conf() *AppConfig {
	if conf == nil {
		return Load()
	}
	return conf
}

// ConfigIds seeds the snowflake node id from the environment.
func ConfigIds() {
	ids.SetNodeID(int64(tools.GetEnvInt("NODE_ID", 1)))
}
