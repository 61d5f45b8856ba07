package natsutil

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// EmbeddedOpts configures an in-process NATS server.
type EmbeddedOpts struct {
	Host string
	// Port -1 picks a random free port.
	Port int
}

// Embedded is an in-process NATS server.
type Embedded struct {
	srv *server.Server
}

// RunEmbedded starts a NATS server in this process and waits until it
// accepts connections.
func RunEmbedded(opts EmbeddedOpts) (*Embedded, error) {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port == 0 {
		opts.Port = -1
	}
	ns, err := server.NewServer(&server.Options{
		ServerName: "carviewer",
		Host:       opts.Host,
		Port:       opts.Port,
		NoSigs:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("natsutil: create server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("natsutil: server not ready within timeout")
	}
	return &Embedded{srv: ns}, nil
}

// ClientURL returns the connection URL for clients.
func (e *Embedded) ClientURL() string { return e.srv.ClientURL() }

// Shutdown stops the server and waits for it to exit.
func (e *Embedded) Shutdown() {
	e.srv.Shutdown()
	e.srv.WaitForShutdown()
}

// DialOpts configures Dial.
type DialOpts struct {
	Name string
	URL  string
	// Embedded starts an in-process server on Port and connects to it.
	Embedded bool
	Port     int
}

// Dial connects to NATS, starting an embedded server first when asked.
// With no URL and no embedded server it returns a nil connection. The
// returned close func drains the connection and stops the embedded server.
func Dial(opts DialOpts) (*nats.Conn, func(), error) {
	url := opts.URL
	var emb *Embedded
	if opts.Embedded {
		var err error
		emb, err = RunEmbedded(EmbeddedOpts{Port: opts.Port})
		if err != nil {
			return nil, nil, err
		}
		url = emb.ClientURL()
	}
	if url == "" {
		return nil, func() {}, nil
	}
	nc, err := nats.Connect(url, nats.Name(opts.Name), nats.MaxReconnects(-1))
	if err != nil {
		if emb != nil {
			emb.Shutdown()
		}
		return nil, nil, fmt.Errorf("natsutil: connect %s: %w", url, err)
	}
	return nc, func() {
		_ = nc.Drain()
		if emb != nil {
			emb.Shutdown()
		}
	}, nil
}
