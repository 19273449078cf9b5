package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"google.golang.org/grpc"
)

type Flag uint8

const (
	FlagMonitor Flag = iota
	FlagWorker
)

func (f Flag) String() string {
	switch f {
	case FlagMonitor:
		return "monitor"
	case FlagWorker:
		return "worker"
	default:
		return fmt.Sprintf("unknown (%d)", f)
	}
}

func FlagFromString(str string) Flag {
	switch strings.ToLower(str) {
	case "monitor":
		return FlagMonitor
	case "worker":
		return FlagWorker
	default:
		return FlagMonitor
	}
}

type Network uint8

func (n Network) String() string {
	switch n {
	case NetworkTCP:
		return "tcp"
	case NetworkTCP4:
		return "tcp4"
	case NetworkUnix:
		return "unix"
	default:
		return fmt.Sprintf("unknown (%d)", n)
	}
}

func NetworkFromString(str string) Network {
	switch strings.ToLower(str) {
	case "tcp":
		return NetworkTCP
	case "tcp4":
		return NetworkTCP4
	case "unix":
		return NetworkUnix
	default:
		return NetworkUnix
	}
}

const (
	NetworkTCP Network = iota
	NetworkTCP4
	NetworkUnix
)

const (
	defaultUnixSocketName = "wordcount-monitor-"
	defaultUnixSocketPath = "/var/tmp"
)

var defaultUnixSocket = defaultUnixSocketPath + "/" + defaultUnixSocketName

type Option func(server *Server) error

func WithAddr(addr string) Option {
	return func(server *Server) error {
		if addr == "" && server.network == NetworkUnix {
			addr = DefaultSocketName()
		}
		server.addr = addr
		return nil
	}
}

func WithPort(port int) Option {
	return func(server *Server) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %d", port)
		}
		server.port = port
		return nil
	}
}

func WithFlag(flag Flag) Option {
	return func(server *Server) error {
		server.flag = flag
		return nil
	}
}

func WithNetwork(net Network) Option {
	return func(server *Server) error {
		server.network = net
		return nil
	}
}

type StopHookFunc func() error

// Server wraps a gRPC server bound to one listener.
type Server struct {
	flag     Flag
	network  Network
	addr     string
	port     int
	listener net.Listener
	server   *grpc.Server
	hook     StopHookFunc
}

// New applies opts in order; put WithNetwork before WithAddr so an empty
// unix address falls back to the default socket.
func New(opts ...Option) (*Server, error) {
	server := &Server{
		server: grpc.NewServer(),
		hook: func() error {
			return nil
		},
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, err
		}
	}

	return server, nil
}

func (s *Server) Raw() *grpc.Server {
	return s.server
}

func (s *Server) StopHook(hookFunc StopHookFunc) {
	if hookFunc != nil {
		s.hook = hookFunc
	}
}

func (s *Server) address() string {
	if s.network == NetworkUnix {
		return s.addr
	}
	return net.JoinHostPort(s.addr, strconv.Itoa(s.port))
}

// Listen binds the listener without serving yet.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen(s.network.String(), s.address())
	if err != nil {
		return err
	}
	s.listener = listener
	return nil
}

// Addr is the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve serves until ctx is done, then stops gracefully and runs the
// stop hook.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func(server *grpc.Server, listener net.Listener) {
		errCh <- server.Serve(listener)
	}(s.server, s.listener)

	log.Printf("server %s listen and serving at: %s\n", s.flag, s.listener.Addr())

	select {
	case err := <-errCh:
		return fmt.Errorf("shutting down the gRPC server with unexpected error: %w", err)
	case <-ctx.Done():
	}

	s.server.GracefulStop()
	return s.hook()
}

// Start serves until the process receives SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

func DefaultSocketName() string {
	n := defaultUnixSocket
	n += strconv.Itoa(os.Getuid())
	return n
}
