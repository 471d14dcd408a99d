// Package tunnel forwards a database connection through an SSH jump host,
// using golang.org/x/crypto/ssh's direct-tcpip channel type the way any
// SSH port-forwarding client does.
package tunnel

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"
)

// AuthMethod selects how the tunnel authenticates to the jump host.
type AuthMethod int

const (
	AuthPassword AuthMethod = iota
	AuthPrivateKeyFile
	AuthAgent
)

// Config describes the jump host, the remote (database) endpoint reached
// through it, and how to authenticate.
type Config struct {
	Host           string
	Port           int
	User           string
	Auth           AuthMethod
	Password       string
	PrivateKeyPath string
	Passphrase     string
	RemoteHost     string
	RemotePort     int
	KeepaliveEvery time.Duration // 0 disables keepalive
	DialTimeout    time.Duration
}

// Tunnel establishes an SSH session to Config.Host and forwards bytes
// between an ephemeral local TCP port and a direct-tcpip channel to
// (RemoteHost, RemotePort). The database driver connects to
// "127.0.0.1:{LocalPort}" as if it were talking to the remote host
// directly.
type Tunnel struct {
	cfg    Config
	client *ssh.Client
	ln     net.Listener
	logger *slog.Logger

	LocalPort int

	running atomic.Bool
	wg      sync.WaitGroup
	closeCh chan struct{}
}

// Open dials the jump host, authenticates, opens an ephemeral local
// listener, and starts forwarding accepted connections to the remote
// endpoint. It returns once the listener is ready; forwarding runs in the
// background until Close.
func Open(cfg Config, logger *slog.Logger) (*Tunnel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	authMethod, err := authMethodFor(cfg)
	if err != nil {
		return nil, err
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // workbench connects to hosts the user already trusts interactively
		Timeout:         dialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("ssh: dialing jump host %s: %w", addr, err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ssh: allocating local port: %w", err)
	}

	t := &Tunnel{
		cfg:       cfg,
		client:    client,
		ln:        ln,
		logger:    logger,
		LocalPort: ln.Addr().(*net.TCPAddr).Port,
		closeCh:   make(chan struct{}),
	}
	t.running.Store(true)

	t.wg.Add(1)
	go t.acceptLoop()

	if cfg.KeepaliveEvery > 0 {
		t.wg.Add(1)
		go t.keepaliveLoop()
	}

	logger.Info("ssh tunnel established", "jump_host", addr, "remote", fmt.Sprintf("%s:%d", cfg.RemoteHost, cfg.RemotePort), "local_port", t.LocalPort)
	return t, nil
}

func authMethodFor(cfg Config) (ssh.AuthMethod, error) {
	switch cfg.Auth {
	case AuthPassword:
		return ssh.Password(cfg.Password), nil
	case AuthPrivateKeyFile:
		keyBytes, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ssh: reading private key %s: %w", cfg.PrivateKeyPath, err)
		}
		var signer ssh.Signer
		if cfg.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(cfg.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("ssh: parsing private key: %w", err)
		}
		return ssh.PublicKeys(signer), nil
	case AuthAgent:
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return nil, errors.New("ssh: SSH_AUTH_SOCK not set, no agent to connect to")
		}
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return nil, fmt.Errorf("ssh: connecting to agent socket: %w", err)
		}
		return ssh.PublicKeysCallback(agentSigners(conn)), nil
	default:
		return nil, fmt.Errorf("ssh: unknown auth method %d", cfg.Auth)
	}
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			select {
			case <-t.closeCh:
				return
			default:
				t.logger.Warn("ssh tunnel accept error", "error", err)
				return
			}
		}
		t.wg.Add(1)
		go t.forward(conn)
	}
}

// forward bridges one local TCP connection with a direct-tcpip channel to
// the remote database endpoint, copying in both directions until either
// side closes.
func (t *Tunnel) forward(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	remote, err := t.client.Dial("tcp", fmt.Sprintf("%s:%d", t.cfg.RemoteHost, t.cfg.RemotePort))
	if err != nil {
		t.logger.Warn("ssh tunnel failed to open direct-tcpip channel", "error", err)
		return
	}
	defer remote.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); io.Copy(remote, local) }()
	go func() { defer wg.Done(); io.Copy(local, remote) }()
	wg.Wait()
}

func (t *Tunnel) keepaliveLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(t.cfg.KeepaliveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-t.closeCh:
			return
		case <-ticker.C:
			if _, _, err := t.client.SendRequest("keepalive@zqlz", true, nil); err != nil {
				t.logger.Warn("ssh tunnel keepalive failed", "error", err)
			}
		}
	}
}

// IsRunning reports whether the tunnel is still forwarding traffic.
func (t *Tunnel) IsRunning() bool {
	return t.running.Load()
}

// Close stops accepting new connections, closes the SSH client, and waits
// for in-flight forwards to drain. Idempotent.
func (t *Tunnel) Close() error {
	if !t.running.CompareAndSwap(true, false) {
		return nil
	}
	close(t.closeCh)
	t.ln.Close()
	err := t.client.Close()
	t.wg.Wait()
	return err
}
