package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/service"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // "" disables the health endpoint
	LogLevel slog.Level

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/garage.db"

	// Optional PostgreSQL archive for the access log.
	ArchiveDSN string

	// Roster file, hot-reloaded when set.
	RosterFile string

	// Admin basic auth. Either a bcrypt hash or a plain password.
	AdminUser         string
	AdminPasswordHash string
	AdminPassword     string

	// Recogniser / summariser
	GeminiAPIKey string
	GeminiModel  string

	// MQTT sensor bridge; no brokers disables it.
	MQTTBrokers          []string
	MQTTClientID         string
	MQTTUsername         string
	MQTTPassword         string
	MQTTObstructionTopic string
	MQTTProximityTopic   string
	MQTTDoorTopic        string
	MQTTPowerTopic       string

	// Local obstruction input (sysfs GPIO value file); "" disables polling.
	ObstructionGPIO     string
	ObstructionInverted bool
	ObstructionPoll     time.Duration
	ObstructionDebounce time.Duration
	ProximityTTL        time.Duration

	MDNS bool

	Door         service.DoorConfig
	LPRCooldown  time.Duration
	PowerTick    time.Duration
	Power        service.PowerConfig
	DigestCron   string
	DigestWindow int

	// Retention
	LogRetentionDays       int // 0 = keep forever
	TelemetryRetentionDays int // 0 = keep forever
	PruneIntervalHours     int // how often the pruner runs (default 6)
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("GARAGE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	power := service.DefaultPowerConfig()
	power.ChargeRate = getenvFloat("GARAGE_CHARGE_RATE", power.ChargeRate)
	power.DrainRate = getenvFloat("GARAGE_DRAIN_RATE", power.DrainRate)
	power.LowThreshold = getenvFloat("GARAGE_BATTERY_LOW", power.LowThreshold)
	power.HighThreshold = getenvFloat("GARAGE_BATTERY_HIGH", power.HighThreshold)
	power.BaseTemp = getenvFloat("GARAGE_BASE_TEMP", power.BaseTemp)
	power.ChargeDelta = getenvFloat("GARAGE_CHARGE_TEMP_DELTA", power.ChargeDelta)
	power.BusyDelta = getenvFloat("GARAGE_BUSY_TEMP_DELTA", power.BusyDelta)
	power.HeatRate = getenvFloat("GARAGE_HEAT_RATE", power.HeatRate)
	power.CoolRate = getenvFloat("GARAGE_COOL_RATE", power.CoolRate)
	power.InitialLevel = getenvFloat("GARAGE_INITIAL_LEVEL", power.InitialLevel)
	power.InitialTemp = getenvFloat("GARAGE_INITIAL_TEMP", power.InitialTemp)
	if power.LowThreshold >= power.HighThreshold {
		// fail-soft: hysteresis needs low < high
		d := service.DefaultPowerConfig()
		power.LowThreshold, power.HighThreshold = d.LowThreshold, d.HighThreshold
	}
	power.Schedule = types.ChargeSchedule{
		Enabled:   getenvBool("GARAGE_CHARGE_SCHEDULE", false),
		StartHour: getenvHour("GARAGE_CHARGE_START_HOUR", 0),
		EndHour:   getenvHour("GARAGE_CHARGE_END_HOUR", 24),
	}

	return Config{
		HTTPAddr: getenvDefault("GARAGE_HTTP_ADDR", ":8080"),
		GRPCAddr: os.Getenv("GARAGE_GRPC_ADDR"),
		LogLevel: getenvLevel("GARAGE_LOG_LEVEL", slog.LevelInfo),

		Env:        env,
		DBPath:     getenvDefault("GARAGE_DB_PATH", "./data/garage.db"),
		ArchiveDSN: os.Getenv("GARAGE_ARCHIVE_DSN"),
		RosterFile: os.Getenv("GARAGE_ROSTER_FILE"),

		AdminUser:         getenvDefault("GARAGE_ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("GARAGE_ADMIN_PASSWORD_HASH"),
		AdminPassword:     os.Getenv("GARAGE_ADMIN_PASSWORD"),

		GeminiAPIKey: os.Getenv("GARAGE_GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GARAGE_GEMINI_MODEL"),

		MQTTBrokers:          splitCSV(os.Getenv("GARAGE_MQTT_BROKERS")),
		MQTTClientID:         os.Getenv("GARAGE_MQTT_CLIENT_ID"),
		MQTTUsername:         os.Getenv("GARAGE_MQTT_USERNAME"),
		MQTTPassword:         os.Getenv("GARAGE_MQTT_PASSWORD"),
		MQTTObstructionTopic: getenvDefault("GARAGE_MQTT_OBSTRUCTION_TOPIC", "garage/sensors/obstruction"),
		MQTTProximityTopic:   getenvDefault("GARAGE_MQTT_PROXIMITY_TOPIC", "garage/sensors/proximity"),
		MQTTDoorTopic:        getenvDefault("GARAGE_MQTT_DOOR_TOPIC", "garage/door/state"),
		MQTTPowerTopic:       getenvDefault("GARAGE_MQTT_POWER_TOPIC", "garage/power/state"),

		ObstructionGPIO:     os.Getenv("GARAGE_OBSTRUCTION_GPIO"),
		ObstructionInverted: getenvBool("GARAGE_OBSTRUCTION_INVERTED", false),
		ObstructionPoll:     getenvDuration("GARAGE_OBSTRUCTION_POLL", 5*time.Second),
		ObstructionDebounce: getenvDuration("GARAGE_OBSTRUCTION_DEBOUNCE", 500*time.Millisecond),
		ProximityTTL:        getenvDuration("GARAGE_PROXIMITY_TTL", 30*time.Second),

		MDNS: getenvBool("GARAGE_MDNS", false),

		Door: service.DoorConfig{
			Dwell:          getenvDuration("GARAGE_DOOR_DWELL", 4*time.Second),
			AutoCloseAfter: getenvDuration("GARAGE_AUTO_CLOSE_AFTER", 0),
			PendingAuthTTL: getenvDuration("GARAGE_PENDING_AUTH_TTL", time.Minute),
		},
		LPRCooldown:  getenvDuration("GARAGE_LPR_COOLDOWN", 2*time.Second),
		PowerTick:    getenvDuration("GARAGE_POWER_TICK", 2*time.Second),
		Power:        power,
		DigestCron:   getenvDefault("GARAGE_DIGEST_CRON", "0 0 */6 * * *"),
		DigestWindow: getenvInt("GARAGE_DIGEST_WINDOW", 20),

		LogRetentionDays:       getenvInt("GARAGE_LOG_RETENTION_DAYS", 90),
		TelemetryRetentionDays: getenvInt("GARAGE_TELEMETRY_RETENTION_DAYS", 7),
		PruneIntervalHours:     getenvInt("GARAGE_PRUNE_INTERVAL_HOURS", 6),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvHour(key string, def int) int {
	n := getenvInt(key, def)
	if n > 24 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func getenvLevel(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		return def
	}
	return l
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
