package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCmd_Use(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
}

func TestServeCmd_Short(t *testing.T) {
	assert.Equal(t, "Run the periodic scheduler and admin API", serveCmd.Short)
}

func TestServeCmd_ServiceNotConfigured(t *testing.T) {
	oldSync := syncOrchestrator
	syncOrchestrator = nil
	defer func() {
		syncOrchestrator = oldSync
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serve"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync service not configured")
}

func TestServeCmd_RequiresSchedulerStore(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	oldStore := schedulerStore
	schedulerStore = nil
	defer func() { schedulerStore = oldStore }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serve"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler store not configured")
}
