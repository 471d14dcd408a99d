package connmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vitaliisemenov/zqlz/internal/connmgr/securestore"
	"github.com/vitaliisemenov/zqlz/internal/connmgr/tunnel"
	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// CredentialResolver resolves a saved connection's secrets; backed by
// securestore.Store in production and stubbable in tests.
type CredentialResolver interface {
	Get(key string) (string, error)
}

// ConnectionManager owns every saved connection profile and the live
// connections opened from them, dispatching through a DriverRegistry and
// wrapping each live connection in a ReconnectingConnection.
type ConnectionManager struct {
	registry *driverapi.DriverRegistry
	secrets  CredentialResolver
	logger   *slog.Logger

	mu     sync.RWMutex
	saved  map[uuid.UUID]ConnectionConfig
	active map[uuid.UUID]*ReconnectingConnection
	tunnels map[uuid.UUID]*tunnel.Tunnel
}

// NewConnectionManager creates an empty manager dispatching through
// registry and resolving credentials from secrets.
func NewConnectionManager(registry *driverapi.DriverRegistry, secrets CredentialResolver, logger *slog.Logger) *ConnectionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		registry: registry,
		secrets:  secrets,
		logger:   logger,
		saved:    make(map[uuid.UUID]ConnectionConfig),
		active:   make(map[uuid.UUID]*ReconnectingConnection),
		tunnels:  make(map[uuid.UUID]*tunnel.Tunnel),
	}
}

// SaveConnection registers a profile without connecting to it.
func (m *ConnectionManager) SaveConnection(cfg ConnectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("connmgr: invalid connection config: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[cfg.ID] = cfg
	return nil
}

// resolveParams builds driverapi.ConnectParams for cfg, fetching the
// password from the secure store when UsesSecureStore is set, and dialing
// through an SSH tunnel first when one is configured.
func (m *ConnectionManager) resolveParams(ctx context.Context, cfg ConnectionConfig) (driverapi.ConnectParams, func(), error) {
	var password string
	if cfg.UsesSecureStore {
		secret, err := m.secrets.Get(securestore.PasswordKey(cfg.ID.String()))
		if err != nil {
			return driverapi.ConnectParams{}, nil, fmt.Errorf("connmgr: resolving password: %w", err)
		}
		password = secret
	}

	host, port := cfg.Host, cfg.Port
	cleanup := func() {}

	if cfg.SSHTunnel != nil {
		tunnelCfg := tunnel.Config{
			Host:       cfg.SSHTunnel.Host,
			Port:       cfg.SSHTunnel.Port,
			User:       cfg.SSHTunnel.User,
			Auth:       sshAuthMethod(cfg.SSHTunnel.Auth),
			Password:   cfg.SSHTunnel.Password,
			PrivateKeyPath: cfg.SSHTunnel.PrivateKeyPath,
			RemoteHost: cfg.Host,
			RemotePort: cfg.Port,
			KeepaliveEvery: cfg.SSHTunnel.KeepaliveEvery,
		}
		if cfg.SSHTunnel.Auth == SSHAuthPrivateKeyFile && cfg.UsesSecureStore {
			if passphrase, err := m.secrets.Get(securestore.SSHPassphraseKey(cfg.ID.String())); err == nil {
				tunnelCfg.Passphrase = passphrase
			}
		}

		t, err := tunnel.Open(tunnelCfg, m.logger)
		if err != nil {
			return driverapi.ConnectParams{}, nil, fmt.Errorf("connmgr: opening ssh tunnel: %w", err)
		}
		host, port = "127.0.0.1", t.LocalPort

		m.mu.Lock()
		m.tunnels[cfg.ID] = t
		m.mu.Unlock()
		cleanup = func() { t.Close() }
	}

	return driverapi.ConnectParams{
		Host:     host,
		Port:     port,
		Database: cfg.Database,
		Username: cfg.Username,
		Password: password,
		SSLMode:  cfg.SSLMode,
		Options:  cfg.Params,
	}, cleanup, nil
}

func sshAuthMethod(m SSHAuthMethod) tunnel.AuthMethod {
	switch m {
	case SSHAuthPrivateKeyFile:
		return tunnel.AuthPrivateKeyFile
	case SSHAuthAgent:
		return tunnel.AuthAgent
	default:
		return tunnel.AuthPassword
	}
}

// Connect resolves id's saved config, opens (optionally tunneling) a live
// connection, and wraps it in a ReconnectingConnection before recording it
// as active.
func (m *ConnectionManager) Connect(ctx context.Context, id uuid.UUID) (driverapi.Connection, error) {
	m.mu.RLock()
	cfg, ok := m.saved[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no saved connection %s", driverapi.ErrConnectionClosed, id)
	}

	params, cleanup, err := m.resolveParams(ctx, cfg)
	if err != nil {
		return nil, err
	}

	conn, err := m.registry.Connect(ctx, cfg.DriverID, params)
	if err != nil {
		cleanup()
		return nil, err
	}

	factory := func(ctx context.Context) (driverapi.Connection, error) {
		p, cleanup, err := m.resolveParams(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c, err := m.registry.Connect(ctx, cfg.DriverID, p)
		if err != nil {
			cleanup()
			return nil, err
		}
		return c, nil
	}

	wrapped := NewReconnectingConnection(conn, factory, cfg.Reconnect, cfg.DriverID, m.logger)

	m.mu.Lock()
	m.active[id] = wrapped
	m.mu.Unlock()

	return wrapped, nil
}

// Disconnect closes the active connection for id and its SSH tunnel, if
// any. Idempotent.
func (m *ConnectionManager) Disconnect(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	conn, ok := m.active[id]
	delete(m.active, id)
	t, hasTunnel := m.tunnels[id]
	delete(m.tunnels, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	err := conn.Close(ctx)
	if hasTunnel {
		t.Close()
	}
	return err
}

// Test performs a one-shot connect + close without touching saved/active
// state, used to validate a profile before saving it.
func (m *ConnectionManager) Test(ctx context.Context, cfg ConnectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	params, cleanup, err := m.resolveParams(ctx, cfg)
	defer cleanup()
	if err != nil {
		return err
	}
	conn, err := m.registry.Connect(ctx, cfg.DriverID, params)
	if err != nil {
		return err
	}
	return conn.Close(ctx)
}

// Get returns the active connection for id, if any.
func (m *ConnectionManager) Get(id uuid.UUID) (driverapi.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.active[id]
	return conn, ok
}

// IsConnected reports whether id currently has a live connection.
func (m *ConnectionManager) IsConnected(id uuid.UUID) bool {
	_, ok := m.Get(id)
	return ok
}

// ListActive returns the ids of every currently-active connection.
func (m *ConnectionManager) ListActive() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}
