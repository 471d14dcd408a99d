package tunnel

import (
	"net"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// agentSigners adapts a connection to ssh-agent into the signer callback
// ssh.PublicKeysCallback expects.
func agentSigners(conn net.Conn) func() ([]ssh.Signer, error) {
	client := agent.NewClient(conn)
	return client.Signers
}
