package connection

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"mongoquery/internal/kube"
	"mongoquery/internal/query"
)

// Environment variables on the database container that point at the
// credential files. The values are file paths, not the material itself.
const (
	envUsernameFile = "MONGO_INITDB_ROOT_USERNAME_FILE"
	envPasswordFile = "MONGO_INITDB_ROOT_PASSWORD_FILE"
)

// execClient is the cluster API surface the cluster backend needs.
// *kube.Client satisfies it; tests substitute a fake.
type execClient interface {
	FindHealthyPod(ctx context.Context, namespace, deployment string) (string, error)
	Exec(ctx context.Context, namespace, pod, container string, command []string, timeoutSecs int64) (string, error)
	ReadFile(ctx context.Context, namespace, pod, container, path string) (string, error)
	GetEnvValues(ctx context.Context, namespace, pod string, names []string) ([]kube.EnvValue, error)
}

// resolveCredentials reads the MongoDB root credentials from the pod. The
// secret files may rotate, so this runs on every cluster-backed query and the
// result is never cached. Any missing variable or unreadable file is a hard
// per-call failure.
func resolveCredentials(ctx context.Context, client execClient, namespace, pod, container string) (query.Credentials, error) {
	values, err := client.GetEnvValues(ctx, namespace, pod, []string{envUsernameFile, envPasswordFile})
	if err != nil {
		return query.Credentials{}, fmt.Errorf("failed to inspect pod environment: %w", err)
	}

	if !values[0].Found || values[0].Value == "" {
		return query.Credentials{}, fmt.Errorf(
			"MongoDB credentials not found: %s environment variable missing in pod '%s/%s'",
			envUsernameFile, namespace, pod)
	}
	if !values[1].Found || values[1].Value == "" {
		return query.Credentials{}, fmt.Errorf(
			"MongoDB credentials not found: %s environment variable missing in pod '%s/%s'",
			envPasswordFile, namespace, pod)
	}

	var username, password string
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		content, readErr := client.ReadFile(groupCtx, namespace, pod, container, values[0].Value)
		if readErr != nil {
			return fmt.Errorf("failed to read username file: %w", readErr)
		}
		username = strings.TrimSpace(content)
		return nil
	})
	group.Go(func() error {
		content, readErr := client.ReadFile(groupCtx, namespace, pod, container, values[1].Value)
		if readErr != nil {
			return fmt.Errorf("failed to read password file: %w", readErr)
		}
		password = strings.TrimSpace(content)
		return nil
	})
	if err := group.Wait(); err != nil {
		return query.Credentials{}, err
	}

	return query.Credentials{Username: username, Password: password}, nil
}
