package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	e := newExecutor(t, false)
	cfg := writeConfig(t)

	t.Run("list", func(t *testing.T) {
		e.Run(t, "anchor-comp", "run", "--config-file", cfg)
		e.checkNextLine(t, "^env$")
		e.checkNextLine(t, "^fail$")
		e.checkNextLine(t, "^test$")
		e.checkEOF(t)
	})
	t.Run("environment", func(t *testing.T) {
		e.Run(t, "anchor-comp", "run", "--config-file", cfg,
			"--rpc-endpoint", "http://127.0.0.1:18899", "--wallet", "/tmp/id.json", "env")
		e.checkNextLine(t, "^http://127.0.0.1:18899 /tmp/id.json$")
		e.checkEOF(t)
	})
	t.Run("unknown", func(t *testing.T) {
		e.RunWithError(t, "anchor-comp", "run", "--config-file", cfg, "deploy")
	})
	t.Run("exit code", func(t *testing.T) {
		ch := setExitFunc()
		require.Error(t, e.run("anchor-comp", "run", "--config-file", cfg, "fail"))
		checkExit(t, ch, 3)
	})
}
