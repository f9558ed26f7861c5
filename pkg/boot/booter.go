// Package boot contains the preflight checks run before an export or import
// job is started.
package boot

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/block/bcpzip/pkg/catalog"
	"github.com/siddontang/loggers"
)

type Booter interface {
	PreflightChecks(ctx context.Context) error
}

// CheckExecutable resolves the bcp executable the way the child process will.
func CheckExecutable(executable string) (string, error) {
	path, err := exec.LookPath(executable)
	if err != nil {
		return "", fmt.Errorf("bcp executable %q is not available: %w", executable, err)
	}

	return path, nil
}

// checkServer confirms the server answers a version query. A nil querier
// skips the check.
func checkServer(ctx context.Context, q catalog.Querier, logger loggers.Advanced) error {
	if q == nil {
		return nil
	}
	version, err := catalog.New(q, logger).ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("server version check failed: %w", err)
	}
	logger.Infof("Connected to server: %s", version)

	return nil
}
