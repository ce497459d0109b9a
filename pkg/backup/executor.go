package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
	"github.com/opsdeck/opsdeck/pkg/terminal"
)

// Executor runs one job command with its pipes attached.
type Executor interface {
	Run(ctx context.Context, db *model.Database, command string, stdin io.Reader, stdout io.Writer) error
}

// shellExecutor runs commands locally, or on the database's managed
// server over SSH when the database is tied to one.
type shellExecutor struct {
	servers store.ServersStore
	dialer  *terminal.Dialer
}

// NewExecutor builds the production executor.
func NewExecutor(servers store.ServersStore, dialer *terminal.Dialer) Executor {
	return &shellExecutor{servers: servers, dialer: dialer}
}

func (e *shellExecutor) Run(ctx context.Context, db *model.Database, command string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer

	if db.ServerID == nil {
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = stdin
		cmd.Stdout = stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return commandError(err, &stderr)
		}
		return nil
	}

	srv, err := e.servers.GetServer(*db.ServerID)
	if err != nil {
		return err
	}
	client, cleanup, err := e.dialer.Connect(srv)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := terminal.RunCommand(ctx, client, command, stdin, stdout, &stderr); err != nil {
		return commandError(err, &stderr)
	}
	return nil
}

// commandError folds the last stderr line into the error so a failure
// reads like the tool's own complaint rather than a bare exit status.
func commandError(err error, stderr *bytes.Buffer) error {
	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return err
	}
	return fmt.Errorf("%s: %w", last, err)
}
