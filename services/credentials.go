package services

import (
	"context"
	"fmt"

	"minewatch/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// TokenProvider yields the short-lived bearer credential used to open the
// persistent connection.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider hands out a fixed token, typically from the
// environment. Used when Firebase credentials are not configured.
type StaticTokenProvider string

func (s StaticTokenProvider) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("no auth token configured")
	}
	return string(s), nil
}

// FirebaseTokenProvider mints a custom token for the operator identity from
// a service account.
type FirebaseTokenProvider struct {
	client *auth.Client
	uid    string
	logger *zap.Logger
}

func NewFirebaseTokenProvider(cfg *config.Config, logger *zap.Logger) (*FirebaseTokenProvider, error) {
	ctx := context.Background()

	opt := option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}

	logger.Info("Firebase token provider initialized", zap.String("operator_uid", cfg.OperatorUID))

	return &FirebaseTokenProvider{
		client: client,
		uid:    cfg.OperatorUID,
		logger: logger,
	}, nil
}

func (p *FirebaseTokenProvider) Token(ctx context.Context) (string, error) {
	token, err := p.client.CustomToken(ctx, p.uid)
	if err != nil {
		return "", fmt.Errorf("error minting custom token: %w", err)
	}
	return token, nil
}
