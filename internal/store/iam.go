package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	rdsauth "github.com/aws/aws-sdk-go-v2/feature/rds/auth"
)

// IAMConfig describes a PostgreSQL instance on RDS reached with IAM
// authentication instead of a password.
type IAMConfig struct {
	Endpoint string // host:port
	Region   string
	User     string
	Database string
}

// TokenBuilder signs an RDS auth token. rdsauth.BuildAuthToken satisfies it.
type TokenBuilder func(ctx context.Context, endpoint, region, user string, creds aws.CredentialsProvider, optFns ...func(*rdsauth.BuildAuthTokenOptions)) (string, error)

// IAMDSN builds a postgres DSN whose password is a freshly signed RDS auth
// token. Tokens expire after 15 minutes, so call it right before Open.
func IAMDSN(ctx context.Context, cfg IAMConfig) (string, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return "", fmt.Errorf("load AWS config: %w", err)
	}
	return iamDSN(ctx, cfg, awsCfg.Credentials, rdsauth.BuildAuthToken)
}

func iamDSN(ctx context.Context, cfg IAMConfig, creds aws.CredentialsProvider, build TokenBuilder) (string, error) {
	if cfg.Endpoint == "" || cfg.User == "" || cfg.Database == "" {
		return "", fmt.Errorf("iam dsn: endpoint, user and database are required")
	}
	token, err := build(ctx, cfg.Endpoint, cfg.Region, cfg.User, creds)
	if err != nil {
		return "", fmt.Errorf("build auth token: %w", err)
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=require",
		url.QueryEscape(cfg.User), url.QueryEscape(token), cfg.Endpoint, url.QueryEscape(cfg.Database)), nil
}
