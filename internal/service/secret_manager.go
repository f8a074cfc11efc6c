package service

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

type SecretManagerService interface {
	AccessSecret(ctx context.Context, name string) (string, error)
	Close() error
}

type secretManagerService struct {
	client *secretmanager.Client
}

// NewSecretManagerService creates a client for reading deployment secrets.
// Secret Manager has no emulator, so this always talks to a real GCP project.
func NewSecretManagerService(ctx context.Context, opts ...option.ClientOption) (SecretManagerService, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerService{client: client}, nil
}

// AccessSecret returns the payload of the secret version called name.
func (s *secretManagerService) AccessSecret(ctx context.Context, name string) (string, error) {
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}
