package terminal

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/ssh"

	"github.com/opsdeck/opsdeck/pkg/model"
)

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second

	// pongWait is how long the browser has to answer a ping.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Session is one live browser terminal attached to an SSH shell.
type Session struct {
	ID         string
	ServerID   uint
	ServerName string
	Username   string
	ClientIP   string
	StartedAt  time.Time

	ws   *websocket.Conn
	wsMu sync.Mutex

	shell   *ssh.Session
	stdin   io.WriteCloser
	cleanup func()

	lastActive int64

	done     chan struct{}
	doneOnce sync.Once
}

// Open requests a PTY shell on the SSH client and wires its output to
// the websocket. cleanup closes the underlying SSH chain and runs when
// the session terminates.
func Open(ws *websocket.Conn, client *ssh.Client, cleanup func(), srv *model.Server, username, clientIP string, cols, rows int) (*Session, error) {
	shell, err := client.NewSession()
	if err != nil {
		return nil, err
	}

	if cols <= 0 {
		cols = 120
	}
	if rows <= 0 {
		rows = 40
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := shell.RequestPty("xterm-256color", rows, cols, modes); err != nil {
		_ = shell.Close()
		return nil, err
	}

	stdin, err := shell.StdinPipe()
	if err != nil {
		_ = shell.Close()
		return nil, err
	}

	s := &Session{
		ID:         uuid.New().String(),
		ServerID:   srv.ID,
		ServerName: srv.Name,
		Username:   username,
		ClientIP:   clientIP,
		StartedAt:  time.Now().UTC(),
		ws:         ws,
		shell:      shell,
		stdin:      stdin,
		cleanup:    cleanup,
		done:       make(chan struct{}),
	}
	s.touch()

	out := &outputWriter{session: s}
	shell.Stdout = out
	shell.Stderr = out

	if err := shell.Shell(); err != nil {
		_ = shell.Close()
		return nil, err
	}

	_ = s.send(Message{Type: MessageConnected, Message: srv.Name})
	return s, nil
}

// Run relays browser input to the shell until the client disconnects,
// the shell exits or the session idles past idleTimeout. It blocks.
func (s *Session) Run(idleTimeout time.Duration) {
	go s.waitShell()
	go s.watch(idleTimeout)
	s.readLoop()
	s.Terminate()
}

// Terminate closes the shell, the SSH chain and the websocket. It is
// safe to call more than once and from any goroutine.
func (s *Session) Terminate() {
	s.doneOnce.Do(func() {
		close(s.done)
		_ = s.shell.Close()
		if s.cleanup != nil {
			s.cleanup()
		}

		deadline := time.Now().Add(writeWait)
		closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.wsMu.Lock()
		_ = s.ws.WriteControl(websocket.CloseMessage, closing, deadline)
		s.wsMu.Unlock()
		_ = s.ws.Close()
	})
}

// Info returns the administrative summary of the session.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:         s.ID,
		ServerID:   s.ServerID,
		ServerName: s.ServerName,
		Username:   s.Username,
		ClientIP:   s.ClientIP,
		StartedAt:  s.StartedAt,
	}
}

func (s *Session) readLoop() {
	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := s.ws.ReadJSON(&msg); err != nil {
			return
		}
		_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
		s.touch()

		switch msg.Type {
		case MessageInput:
			if _, err := s.stdin.Write([]byte(msg.Data)); err != nil {
				return
			}
		case MessageResize:
			if msg.Rows > 0 && msg.Cols > 0 {
				_ = s.shell.WindowChange(msg.Rows, msg.Cols)
			}
		}
	}
}

// waitShell watches for the remote shell to exit, for example after the
// user types exit.
func (s *Session) waitShell() {
	err := s.shell.Wait()
	if err != nil && !errors.Is(err, io.EOF) {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) {
			_ = s.send(Message{Type: MessageError, Message: err.Error()})
		}
	}
	s.Terminate()
}

// watch pings the browser and enforces the idle timeout.
func (s *Session) watch(idleTimeout time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if idleTimeout > 0 && s.idleFor() > idleTimeout {
				_ = s.send(Message{Type: MessageError, Message: "session closed after idle timeout"})
				s.Terminate()
				return
			}

			s.wsMu.Lock()
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.ws.WriteMessage(websocket.PingMessage, nil)
			s.wsMu.Unlock()
			if err != nil {
				s.Terminate()
				return
			}
		}
	}
}

func (s *Session) send(msg Message) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteJSON(msg)
}

func (s *Session) touch() {
	atomic.StoreInt64(&s.lastActive, time.Now().UnixNano())
}

func (s *Session) idleFor() time.Duration {
	return time.Since(time.Unix(0, atomic.LoadInt64(&s.lastActive)))
}

// outputWriter forwards shell output to the browser.
type outputWriter struct {
	session *Session
}

func (w *outputWriter) Write(p []byte) (int, error) {
	if err := w.session.send(Message{Type: MessageOutput, Data: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}
