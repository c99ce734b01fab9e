package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"
)

// SshListener serves the console to ssh clients. Nobody is authenticated;
// anyone who can reach the address plays as the local participant.
type SshListener struct {
	addr   string
	cm     *ConnectionManager
	config *ssh.ServerConfig
}

func NewSshListener(addr string, cm *ConnectionManager, hostKey ssh.Signer) *SshListener {
	config := &ssh.ServerConfig{NoClientAuth: true}
	config.AddHostKey(hostKey)

	return &SshListener{
		addr:   addr,
		cm:     cm,
		config: config,
	}
}

func (l *SshListener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.addr, err)
	}

	slog.InfoContext(ctx, "console listening", "protocol", "ssh", "addr", ln.Addr().String())

	conns := newConnTracker()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				conns.closeAll()
				return nil
			}
			slog.ErrorContext(ctx, "accepting ssh connection", "error", err)
			continue
		}

		connCtx, done := conns.add()
		go func() {
			defer done()
			l.serve(connCtx, conn)
		}()
	}
}

func (l *SshListener) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, l.config)
	if err != nil {
		slog.WarnContext(ctx, "ssh handshake failed", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	slog.DebugContext(ctx, "ssh client connected", "remote", sshConn.RemoteAddr(), "client", string(sshConn.ClientVersion()))

	go func() {
		<-ctx.Done()
		_ = sshConn.Close()
	}()

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "only session channels are served")
			continue
		}
		l.serveChannel(ctx, newChan)
	}
}

func (l *SshListener) serveChannel(ctx context.Context, newChan ssh.NewChannel) {
	ch, requests, err := newChan.Accept()
	if err != nil {
		slog.ErrorContext(ctx, "accepting ssh channel", "error", err)
		return
	}
	defer ch.Close()

	// Clients only forward input once their shell request is answered.
	select {
	case <-awaitShell(requests):
	case <-ctx.Done():
		return
	}

	l.cm.AcceptConnection(ctx, newCRLFReadWriter(ch))
}

// awaitShell answers channel requests and closes the returned channel once
// a shell is asked for. A pty is refused so the client keeps local echo and
// line editing.
func awaitShell(in <-chan *ssh.Request) <-chan struct{} {
	ready := make(chan struct{})
	go func() {
		var once sync.Once
		for req := range in {
			ok := req.Type == "shell"
			_ = req.Reply(ok, nil)
			if ok {
				once.Do(func() { close(ready) })
			}
		}
	}()
	return ready
}
