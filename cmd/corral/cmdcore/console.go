package cmdcore

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/corraldev/corral/lifecycle"
)

// escapeState tracks the two-state escape detection machine, per the
// teacher's console.go.
type escapeState int

const (
	stateNormal escapeState = iota
	stateEscaped
)

// ParseEscapeChar accepts either a literal single character or "^X" caret
// notation (e.g. "^]") and returns the corresponding control byte.
func ParseEscapeChar(raw string) (byte, error) {
	if raw == "" {
		return 0x1D, nil // ctrl+], the teacher's default
	}
	if strings.HasPrefix(raw, "^") && len(raw) == 2 { //nolint:mnd
		c := raw[1]
		if c < 'A' || c > '_' {
			return 0, fmt.Errorf("invalid caret escape %q", raw)
		}
		return c - '@', nil
	}
	if len(raw) == 1 {
		return raw[0], nil
	}
	return 0, fmt.Errorf("invalid escape character %q", raw)
}

// FormatEscapeChar renders c back to caret notation for display.
func FormatEscapeChar(c byte) string {
	if c < 0x20 { //nolint:mnd
		return "^" + string(c+'@')
	}
	return string(c)
}

// Shell opens an interactive SSH session to info's guest and relays the
// local terminal to it, raw-mode, until the guest session ends or the user
// sends the disconnect escape sequence. It dials golang.org/x/crypto/ssh
// directly rather than through the sshsession.Opener boundary: that
// interface only models single-command Run/Close, not an interactive PTY,
// and this is a CLI-only concern, not something the daemon itself needs.
func Shell(ctx context.Context, info lifecycle.SSHInfoResult, escapeChar byte) error {
	keyPEM, err := base64.StdEncoding.DecodeString(info.PrivateKey)
	if err != nil {
		return fmt.Errorf("decode private key: %w", err)
	}
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return fmt.Errorf("decode private key: no PEM block found")
	}
	priv, err := parseRSAPrivateKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return fmt.Errorf("derive signer: %w", err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            info.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // ephemeral local guest, no prior host-key trust to check
		Timeout:         10 * time.Second,            //nolint:mnd
	}

	addr := net.JoinHostPort(info.Host, strconv.Itoa(info.Port))
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer client.Close() //nolint:errcheck

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer session.Close() //nolint:errcheck

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}
	width, height, err := term.GetSize(fd)
	if err != nil {
		width, height = 80, 24 //nolint:mnd
	}
	if err := session.RequestPty("xterm-256color", height, width, ssh.TerminalModes{}); err != nil {
		return fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr

	if err := session.Shell(); err != nil {
		return fmt.Errorf("start shell: %w", err)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Fprintf(os.Stderr, "\r\nDisconnected.\r\n")
	}()

	cleanupWinch := handleSIGWINCH(fd, session)
	defer cleanupWinch()

	fmt.Fprintf(os.Stderr, "Connected (escape sequence: %s.)\r\n", FormatEscapeChar(escapeChar))

	done := make(chan error, 1)
	go func() { done <- relayStdinToSession(ctx, os.Stdin, stdin, escapeChar) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		_ = session.Wait()
		if err != nil && !isCleanExit(err) {
			return err
		}
		return nil
	}
}

func parseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	return x509.ParsePKCS1PrivateKey(der)
}

// relayStdinToSession reads from local with escape detection, forwarding to
// remote, mirroring the teacher's relayStdinToPTY generalized to an
// arbitrary escape byte rather than a compile-time constant.
func relayStdinToSession(ctx context.Context, local io.Reader, remote io.Writer, escapeChar byte) error {
	state := stateNormal
	buf := make([]byte, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := local.Read(buf)
		if n == 0 || err != nil {
			return err
		}
		b := buf[0]

		switch state {
		case stateNormal:
			if b == escapeChar {
				state = stateEscaped
				continue
			}
			if _, werr := remote.Write(buf[:1]); werr != nil {
				return werr
			}
		case stateEscaped:
			state = stateNormal
			switch b {
			case '.':
				return nil
			case '?':
				helpMsg := fmt.Sprintf("\r\nSupported escape sequences:\r\n"+
					"  %[1]s.  Disconnect\r\n"+
					"  %[1]s?  This help\r\n"+
					"  %[1]s%[1]s Send %[1]s\r\n", FormatEscapeChar(escapeChar))
				_, _ = os.Stdout.Write([]byte(helpMsg))
			case escapeChar:
				if _, werr := remote.Write([]byte{escapeChar}); werr != nil {
					return werr
				}
			default:
				if _, werr := remote.Write([]byte{escapeChar, b}); werr != nil {
					return werr
				}
			}
		}
	}
}

// isCleanExit returns true for errors that indicate a normal session
// disconnect.
func isCleanExit(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO)
}

// handleSIGWINCH propagates the initial terminal size and relays resize
// events for the session's lifetime, mirroring the teacher's
// console/sigwinch_linux.go generalized from a raw PTY file descriptor to
// an *ssh.Session's WindowChange call. The platform-specific signal
// notification lives in console_winch_*.go, exactly as the teacher splits
// console_linux.go from console_darwin.go.
func handleSIGWINCH(localFD int, session *ssh.Session) func() {
	propagate := func() {
		width, height, err := term.GetSize(localFD)
		if err == nil {
			_ = session.WindowChange(height, width)
		}
	}
	propagate()
	return notifyWinch(propagate)
}
