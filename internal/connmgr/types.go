// Package connmgr owns the connection lifecycle: saved-connection
// bookkeeping, pooling, auto-reconnect, SSH tunneling, and health checks,
// all dialect-agnostic over driverapi.Connection.
package connmgr

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

var validate = validator.New()

// PoolConfig bounds a connection pool's size and lifetime behavior.
type PoolConfig struct {
	MinSize       int           `validate:"gte=0"`
	MaxSize       int           `validate:"gte=1,gtefield=MinSize"`
	AcquireTimeout time.Duration `validate:"gt=0"`
	IdleTimeout   time.Duration `validate:"gt=0"`
	MaxLifetime   time.Duration // 0 = unbounded
}

// DefaultPoolConfig mirrors the teacher's default Postgres pool sizing.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinSize:        1,
		MaxSize:        10,
		AcquireTimeout: 10 * time.Second,
		IdleTimeout:    5 * time.Minute,
		MaxLifetime:    time.Hour,
	}
}

// BackoffConfig is the exponential-backoff schedule ReconnectingConnection
// uses between reconnect attempts.
type BackoffConfig struct {
	Initial time.Duration `validate:"gt=0"`
	Factor  float64       `validate:"gt=1"`
	Max     time.Duration `validate:"gt=0"`
	Jitter  bool
}

// ReconnectConfig governs ReconnectingConnection's retry policy.
type ReconnectConfig struct {
	MaxAttempts        int `validate:"gte=0"`
	Backoff            BackoffConfig
	RetryOnQueryError  bool
}

// DefaultReconnectConfig is the spec's default backoff: exponential, base
// 100ms, factor 2.0, cap 30s, full jitter.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxAttempts: 5,
		Backoff: BackoffConfig{
			Initial: 100 * time.Millisecond,
			Factor:  2.0,
			Max:     30 * time.Second,
			Jitter:  true,
		},
	}
}

// SSHAuthMethod selects how SSHTunnelConfig authenticates to the jump host.
type SSHAuthMethod string

const (
	SSHAuthPassword       SSHAuthMethod = "password"
	SSHAuthPrivateKeyFile SSHAuthMethod = "private_key_file"
	SSHAuthAgent          SSHAuthMethod = "agent"
)

// SSHTunnelConfig describes an SSH jump host to forward the database
// connection through.
type SSHTunnelConfig struct {
	Host           string        `validate:"required"`
	Port           int           `validate:"gte=1,lte=65535"`
	User           string        `validate:"required"`
	Auth           SSHAuthMethod `validate:"required,oneof=password private_key_file agent"`
	Password       string
	PrivateKeyPath string
	Passphrase     string
	RemoteHost     string        `validate:"required"`
	RemotePort     int           `validate:"gte=1,lte=65535"`
	KeepaliveEvery time.Duration // 0 disables keepalive
}

// ConnectionConfig is the saved, dialect-agnostic shape of a connection
// profile. Password and SSH passphrase are never persisted here; callers
// resolve them from SecureStore using ID at connect time.
type ConnectionConfig struct {
	ID         uuid.UUID              `validate:"required"`
	Name       string                 `validate:"required"`
	DriverID   driverapi.DialectID    `validate:"required"`
	Host       string                 `validate:"required"`
	Port       int                    `validate:"gte=0,lte=65535"`
	Database   string
	Username   string
	UsesSecureStore bool
	SSLMode    string
	Params     map[string]string
	SSHTunnel  *SSHTunnelConfig
	Pool       PoolConfig
	Reconnect  ReconnectConfig
}

// Validate checks ConnectionConfig (and its nested Pool/SSHTunnel configs)
// against their struct tags.
func (c *ConnectionConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := validate.Struct(&c.Pool); err != nil {
		return err
	}
	if err := validate.Struct(&c.Reconnect.Backoff); err != nil {
		return err
	}
	if c.SSHTunnel != nil {
		if err := validate.Struct(c.SSHTunnel); err != nil {
			return err
		}
	}
	return nil
}

// PoolStats is a point-in-time snapshot of a pool's occupancy.
type PoolStats struct {
	Total   int
	Idle    int
	Active  int
	Waiting int
}

// Utilization is Active/Total, or 0 when the pool is empty.
func (s PoolStats) Utilization() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Active) / float64(s.Total)
}

// IsFull reports whether the pool has live connections and none idle.
func (s PoolStats) IsFull() bool {
	return s.Total > 0 && s.Idle == 0
}

// HealthStatus classifies a connection's responsiveness.
type HealthStatus int

const (
	HealthUnknown HealthStatus = iota
	HealthHealthy
	HealthDegraded
	HealthUnhealthy
)

func (s HealthStatus) String() string {
	switch s {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthThresholds classifies latency into a HealthStatus; Degraded must be
// at least Healthy to keep the ordering sane.
type HealthThresholds struct {
	Healthy  time.Duration
	Degraded time.Duration
}

// DefaultHealthThresholds matches the spec's default: healthy ≤ 100ms,
// degraded ≤ 500ms.
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{Healthy: 100 * time.Millisecond, Degraded: 500 * time.Millisecond}
}

// Classify buckets a probe latency into a HealthStatus.
func (t HealthThresholds) Classify(latency time.Duration) HealthStatus {
	switch {
	case latency <= t.Healthy:
		return HealthHealthy
	case latency <= t.Degraded:
		return HealthDegraded
	default:
		return HealthUnhealthy
	}
}

// HealthCheckResult is one health-probe outcome.
type HealthCheckResult struct {
	Status             HealthStatus
	Latency            time.Duration
	Err                error
	ConsecutiveFailures int
	CheckedAt          time.Time
}
