package tunnel

import (
	"os"
	"testing"
)

func TestAuthMethodFor_PrivateKeyFileMissing(t *testing.T) {
	_, err := authMethodFor(Config{Auth: AuthPrivateKeyFile, PrivateKeyPath: "/nonexistent/id_rsa"})
	if err == nil {
		t.Fatal("expected an error for a missing private key file")
	}
}

func TestAuthMethodFor_AgentWithoutSocket(t *testing.T) {
	old := os.Getenv("SSH_AUTH_SOCK")
	os.Unsetenv("SSH_AUTH_SOCK")
	defer os.Setenv("SSH_AUTH_SOCK", old)

	_, err := authMethodFor(Config{Auth: AuthAgent})
	if err == nil {
		t.Fatal("expected an error when SSH_AUTH_SOCK is unset")
	}
}

func TestAuthMethodFor_Password(t *testing.T) {
	method, err := authMethodFor(Config{Auth: AuthPassword, Password: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method == nil {
		t.Fatal("expected a non-nil ssh.AuthMethod")
	}
}

func TestAuthMethodFor_UnknownMethod(t *testing.T) {
	if _, err := authMethodFor(Config{Auth: AuthMethod(99)}); err == nil {
		t.Fatal("expected an error for an unknown auth method")
	}
}
