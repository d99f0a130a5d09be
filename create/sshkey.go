package create

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// sshKeyPair is the per-instance key injected by vendor-data and handed back
// to the client through SSHInfo. No corpus library generates SSH keypairs
// outright: crypto/rsa and encoding/pem do the generation and encoding,
// while golang.org/x/crypto/ssh (already pulled in for bcrypt) derives the
// authorized_keys material from the generated public key.
type sshKeyPair struct {
	PrivateKeyPEM       []byte
	PublicKeyAuthorized string // base64 blob only, no "ssh-rsa " prefix
}

func generateSSHKeyPair() (sshKeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return sshKeyPair{}, fmt.Errorf("generate SSH keypair: %w", err)
	}
	pub, err := ssh.NewPublicKey(&priv.PublicKey)
	if err != nil {
		return sshKeyPair{}, fmt.Errorf("derive SSH public key: %w", err)
	}

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}
	fields := strings.Fields(string(ssh.MarshalAuthorizedKey(pub)))
	var material string
	if len(fields) >= 2 {
		material = fields[1]
	}

	return sshKeyPair{
		PrivateKeyPEM:       pem.EncodeToMemory(block),
		PublicKeyAuthorized: material,
	}, nil
}
