package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultUpstreamURL = "https://public-esa.ose.gov.pl/api/v1/smog"
	DefaultRelayURL    = "https://api.cors.lol/"

	// relayDirect in RELAY_URL disables the relay and calls the upstream as is.
	relayDirect = "direct"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	UpstreamURL string
	// RelayURL wraps the upstream as ?url=<upstream>. Empty means no relay.
	RelayURL     string
	FetchTimeout time.Duration

	// JournalLimit caps the in-memory fetch journal.
	JournalLimit int

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

// MQTTEnabled reports whether a broker was configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	upstreamURL := strings.TrimSpace(os.Getenv("UPSTREAM_URL"))
	if upstreamURL == "" {
		upstreamURL = DefaultUpstreamURL
	}
	if err := validateHTTPURL(upstreamURL); err != nil {
		return Config{}, fmt.Errorf("invalid UPSTREAM_URL %q: %w", upstreamURL, err)
	}

	relayURL := strings.TrimSpace(os.Getenv("RELAY_URL"))
	switch strings.ToLower(relayURL) {
	case "":
		relayURL = DefaultRelayURL
	case relayDirect:
		relayURL = ""
	default:
		if err := validateHTTPURL(relayURL); err != nil {
			return Config{}, fmt.Errorf("invalid RELAY_URL %q: %w", relayURL, err)
		}
	}

	fetchTimeoutStr := strings.TrimSpace(os.Getenv("FETCH_TIMEOUT"))
	if fetchTimeoutStr == "" {
		fetchTimeoutStr = "10s"
	}
	fetchTimeout, err := time.ParseDuration(fetchTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid FETCH_TIMEOUT %q: %w", fetchTimeoutStr, err)
	}
	if fetchTimeout <= 0 {
		return Config{}, fmt.Errorf("FETCH_TIMEOUT must be positive, got %v", fetchTimeout)
	}

	journalLimitStr := strings.TrimSpace(os.Getenv("JOURNAL_LIMIT"))
	if journalLimitStr == "" {
		journalLimitStr = "500"
	}
	journalLimit, err := strconv.Atoi(journalLimitStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JOURNAL_LIMIT %q: %w", journalLimitStr, err)
	}
	if journalLimit <= 0 {
		return Config{}, fmt.Errorf("JOURNAL_LIMIT must be positive, got %d", journalLimit)
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "smogdash"
	}

	mqttTopic := strings.TrimSpace(os.Getenv("MQTT_TOPIC"))
	if mqttTopic == "" {
		mqttTopic = "smogdash/stations/59-600"
	}

	return Config{
		AppEnv:       appEnv,
		LogLevel:     level,
		HTTPAddr:     httpAddr,
		UpstreamURL:  upstreamURL,
		RelayURL:     relayURL,
		FetchTimeout: fetchTimeout,
		JournalLimit: journalLimit,
		MQTTBroker:   mqttBroker,
		MQTTPort:     mqttPort,
		MQTTClientID: mqttClientID,
		MQTTTopic:    mqttTopic,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
