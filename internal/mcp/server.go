// Package mcp implements the MCP (Model Context Protocol) server for ownkey.
// AI agents can discover which secrets exist but never receive plaintext
// values.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/ownkey/pkg/vault"
)

// PasswordEnv is the environment variable the vault password is read from.
const PasswordEnv = "OWNKEY_PASSWORD"

// Version is reported to MCP clients.
const Version = "0.1.0"

// ErrNoPassword is returned when no vault password is available.
var ErrNoPassword = errors.New("no password provided: set " + PasswordEnv + " environment variable")

// Server represents the MCP server for ownkey.
type Server struct {
	server    *mcp.Server
	service   *vault.Service
	vaultPath string
	opts      vault.Options
	logger    *slog.Logger

	// mu serializes vault access; the store lock is exclusive even within
	// one process.
	mu sync.Mutex
}

// ServerOptions contains configuration options for the MCP server.
type ServerOptions struct {
	// VaultPath is the vault file to serve.
	VaultPath string

	// Options controls password resolution. When Options.Password is empty
	// it is read from the OWNKEY_PASSWORD environment variable.
	Options vault.Options

	Logger *slog.Logger
}

// NewServer creates a new MCP server instance. The vault is opened once to
// verify the password before any tool is registered.
func NewServer(service *vault.Service, opts ServerOptions) (*Server, error) {
	if opts.VaultPath == "" {
		return nil, errors.New("mcp: vault path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	vopts := opts.Options
	if vopts.Password == "" {
		vopts.Password = os.Getenv(PasswordEnv)
		// Clear the environment variable after reading for security
		os.Unsetenv(PasswordEnv)
	}
	if vopts.Password == "" && vopts.KeychainAccount == "" {
		return nil, ErrNoPassword
	}

	if _, err := service.Load(opts.VaultPath, vopts); err != nil {
		return nil, fmt.Errorf("failed to unlock vault: %w", err)
	}

	s := &Server{
		server: mcp.NewServer(
			&mcp.Implementation{
				Name:    "ownkey",
				Version: Version,
			},
			nil,
		),
		service:   service,
		vaultPath: opts.VaultPath,
		opts:      vopts,
		logger:    logger,
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "secret_list",
		Description: "List secret names, optionally filtered by a glob pattern such as 'AWS_*'. Does NOT return secret values.",
	}, s.handleSecretList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "secret_exists",
		Description: "Check whether a secret name exists. Does NOT return the secret value.",
	}, s.handleSecretExists)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "secret_get_masked",
		Description: "Get a masked version of a secret value (e.g., '****WXYZ') and its length. Useful for verifying a secret without exposing it.",
	}, s.handleSecretGetMasked)
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Debug("mcp server started", "vault", s.vaultPath)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close drops the password held by the server.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Password = ""
	return nil
}

// load opens the vault for one tool call.
func (s *Server) load() (*vault.Vault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.service.Load(s.vaultPath, s.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	return v, nil
}
