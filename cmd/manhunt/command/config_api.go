package command

import (
	"fmt"
	"net"

	"github.com/pixil98/go-manhunt/internal/api"
)

// APIConfig enables the read-only history api when Addr is set.
type APIConfig struct {
	Addr string `json:"addr"`
}

func (c *APIConfig) validate() error {
	if c.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("api addr: %w", err)
	}
	return nil
}

func (c *APIConfig) buildServer(h *api.Handler) *api.Server {
	return api.NewServer(c.Addr, h)
}
