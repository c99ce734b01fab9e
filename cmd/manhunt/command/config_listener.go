package command

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-service"
	"golang.org/x/crypto/ssh"

	"github.com/pixil98/go-manhunt/internal/listener"
)

type ListenerType int

const (
	ListenerTypeTelnet ListenerType = iota
	ListenerTypeSSH
)

func (lt ListenerType) String() string {
	if lt == ListenerTypeSSH {
		return "ssh"
	}
	return "telnet"
}

func (lt *ListenerType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "telnet":
		*lt = ListenerTypeTelnet
	case "ssh":
		*lt = ListenerTypeSSH
	default:
		return fmt.Errorf("unknown listener type: %s", text)
	}
	return nil
}

// ListenerConfig exposes the player console. Consoles are not
// authenticated, so Host defaults to loopback.
type ListenerConfig struct {
	Protocol    ListenerType `json:"protocol"`
	Host        string       `json:"host"`
	Port        uint16       `json:"port"`
	HostKeyPath string       `json:"host_key_path,omitempty"`
}

func (cl *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if cl.Port == 0 {
		el.Add(fmt.Errorf("port must be set"))
	}
	if cl.Host != "" && net.ParseIP(cl.Host) == nil && cl.Host != "localhost" {
		el.Add(fmt.Errorf("host %q must be an ip address or localhost", cl.Host))
	}
	if cl.HostKeyPath != "" && cl.Protocol != ListenerTypeSSH {
		el.Add(fmt.Errorf("host_key_path only applies to ssh listeners"))
	}

	return el.Err()
}

func (cl *ListenerConfig) addr() string {
	host := cl.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(int(cl.Port)))
}

func (cl *ListenerConfig) buildListener(cm *listener.ConnectionManager) (service.Worker, error) {
	if cl.Protocol == ListenerTypeTelnet {
		return listener.NewTelnetListener(cl.addr(), cm), nil
	}

	signer, err := cl.hostKey()
	if err != nil {
		return nil, fmt.Errorf("ssh host key: %w", err)
	}
	return listener.NewSshListener(cl.addr(), cm, signer), nil
}

// hostKey reads the configured key, or makes a throwaway one that changes
// on every restart.
func (cl *ListenerConfig) hostKey() (ssh.Signer, error) {
	if cl.HostKeyPath == "" {
		slog.Warn("using a throwaway ssh host key", "addr", cl.addr())
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generating: %w", err)
		}
		return ssh.NewSignerFromKey(priv)
	}

	pem, err := os.ReadFile(cl.HostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cl.HostKeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cl.HostKeyPath, err)
	}
	return signer, nil
}
