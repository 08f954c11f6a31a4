package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync [source-id]", syncCmd.Use)
}

func TestSyncCmd_Short(t *testing.T) {
	assert.Equal(t, "Synchronise entries into the document index", syncCmd.Short)
}

func TestSyncCmd_ExecutesWithoutArgs(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Synchronising all sources...")
	assert.Contains(t, buf.String(), "Processed 2 entries: 1 uploaded, 1 skipped, 0 failed.")
}

func TestSyncCmd_ExecutesWithSourceID(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync", "source-123"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Synchronising source: source-123")
}

func TestSyncCmd_RejectsExtraArgs(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync", "source-123", "extra"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg(s)")
}

func TestSyncCmd_ServiceNotConfigured(t *testing.T) {
	oldSync := syncOrchestrator
	syncOrchestrator = nil
	defer func() {
		syncOrchestrator = oldSync
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync service not configured")
}

func TestSyncCmd_ReportsMissingCredentials(t *testing.T) {
	oldSync := syncOrchestrator
	oldCredErr := credentialErr
	syncOrchestrator = nil
	credentialErr = domain.ErrMissingCredentials
	defer func() {
		syncOrchestrator = oldSync
		credentialErr = oldCredErr
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestSyncCmd_ServiceError(t *testing.T) {
	oldSync := syncOrchestrator
	syncOrchestrator = &mockSyncOrchestrator{err: errors.New("connector exploded")}
	defer func() {
		syncOrchestrator = oldSync
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed")
	assert.Contains(t, err.Error(), "connector exploded")
}

func TestSyncCmd_InProgress(t *testing.T) {
	oldSync := syncOrchestrator
	syncOrchestrator = &mockSyncOrchestrator{err: domain.ErrSyncInProgress}
	defer func() {
		syncOrchestrator = oldSync
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")
}
