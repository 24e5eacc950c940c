package cmd

import (
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWaitForExit(t *testing.T) {
	bindErr := errors.New("listen tcp :8080: bind: address already in use")

	t.Run("start failure is returned", func(t *testing.T) {
		errCh := make(chan error, 1)
		errCh <- bindErr
		err := waitForExit(make(chan os.Signal), errCh, zap.NewNop())
		assert.ErrorIs(t, err, bindErr)
	})

	t.Run("closed server is a clean exit", func(t *testing.T) {
		errCh := make(chan error, 1)
		errCh <- http.ErrServerClosed
		assert.NoError(t, waitForExit(make(chan os.Signal), errCh, zap.NewNop()))
	})

	t.Run("signal is a clean exit", func(t *testing.T) {
		sigCh := make(chan os.Signal, 1)
		sigCh <- syscall.SIGTERM
		assert.NoError(t, waitForExit(sigCh, make(chan error), zap.NewNop()))
	})
}
