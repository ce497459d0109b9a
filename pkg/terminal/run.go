package terminal

import (
	"context"
	"io"

	"golang.org/x/crypto/ssh"
)

// RunCommand executes a single command over the SSH client, wiring the
// given pipes to the remote process. stdin may be nil. Cancelling the
// context kills the remote process.
func RunCommand(ctx context.Context, client *ssh.Client, command string, stdin io.Reader, stdout, stderr io.Writer) error {
	sess, err := client.NewSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.Stdin = stdin
	sess.Stdout = stdout
	sess.Stderr = stderr

	if err := sess.Start(command); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- sess.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}
