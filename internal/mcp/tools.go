package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/ownkey/internal/cli"
	"github.com/forest6511/ownkey/pkg/vault"
)

// SecretListInput represents input for secret_list tool.
type SecretListInput struct {
	Pattern string `json:"pattern,omitempty"`
}

// SecretListOutput represents output for secret_list tool.
type SecretListOutput struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// SecretExistsInput represents input for secret_exists tool.
type SecretExistsInput struct {
	Key string `json:"key"`
}

// SecretExistsOutput represents output for secret_exists tool.
type SecretExistsOutput struct {
	Exists bool   `json:"exists"`
	Key    string `json:"key"`
}

// SecretGetMaskedInput represents input for secret_get_masked tool.
type SecretGetMaskedInput struct {
	Key string `json:"key"`
}

// SecretGetMaskedOutput represents output for secret_get_masked tool.
type SecretGetMaskedOutput struct {
	Key         string `json:"key"`
	MaskedValue string `json:"masked_value"`
	ValueLength int    `json:"value_length"`
}

// handleSecretList handles the secret_list tool call.
func (s *Server) handleSecretList(_ context.Context, _ *mcp.CallToolRequest, input SecretListInput) (*mcp.CallToolResult, SecretListOutput, error) {
	v, err := s.load()
	if err != nil {
		return nil, SecretListOutput{}, err
	}

	var patterns []string
	if input.Pattern != "" {
		patterns = []string{input.Pattern}
	}
	keys, err := cli.FilterKeys(patterns, v.Keys())
	if err != nil {
		return nil, SecretListOutput{}, err
	}

	return nil, SecretListOutput{Keys: keys, Count: len(keys)}, nil
}

// handleSecretExists handles the secret_exists tool call.
func (s *Server) handleSecretExists(_ context.Context, _ *mcp.CallToolRequest, input SecretExistsInput) (*mcp.CallToolResult, SecretExistsOutput, error) {
	if input.Key == "" {
		return nil, SecretExistsOutput{}, errors.New("key is required")
	}

	v, err := s.load()
	if err != nil {
		return nil, SecretExistsOutput{}, err
	}
	_, ok := v.Get(input.Key)
	return nil, SecretExistsOutput{Exists: ok, Key: input.Key}, nil
}

// handleSecretGetMasked handles the secret_get_masked tool call.
func (s *Server) handleSecretGetMasked(_ context.Context, _ *mcp.CallToolRequest, input SecretGetMaskedInput) (*mcp.CallToolResult, SecretGetMaskedOutput, error) {
	if input.Key == "" {
		return nil, SecretGetMaskedOutput{}, errors.New("key is required")
	}

	v, err := s.load()
	if err != nil {
		return nil, SecretGetMaskedOutput{}, err
	}
	value, ok := v.Get(input.Key)
	if !ok {
		return nil, SecretGetMaskedOutput{}, fmt.Errorf("%w: %s", vault.ErrSecretNotFound, input.Key)
	}

	return nil, SecretGetMaskedOutput{
		Key:         input.Key,
		MaskedValue: cli.MaskValue(value),
		ValueLength: len([]rune(value)),
	}, nil
}
