package terminal

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// maxJumpDepth bounds how many bastions a connection may pass through.
const maxJumpDepth = 3

// dialTimeout bounds each SSH dial in a chain.
const dialTimeout = 10 * time.Second

var (
	// ErrNoCredential means the server has no credential to log in with.
	ErrNoCredential = errors.New("server has no SSH credential")

	// ErrJumpChainTooDeep means the jump host chain exceeds maxJumpDepth.
	ErrJumpChainTooDeep = errors.New("jump host chain too deep")

	// ErrJumpChainCycle means the jump host references loop.
	ErrJumpChainCycle = errors.New("jump host chain contains a cycle")
)

// Dialer opens SSH connections to managed servers, hopping through their
// jump hosts when configured.
type Dialer struct {
	Servers     store.ServersStore
	Credentials store.CredentialsStore
}

// NewDialer creates a Dialer over the given stores.
func NewDialer(servers store.ServersStore, credentials store.CredentialsStore) *Dialer {
	return &Dialer{Servers: servers, Credentials: credentials}
}

// ResolveChain returns the servers to dial in order, outermost bastion
// first and the target last.
func (d *Dialer) ResolveChain(target *model.Server) ([]*model.Server, error) {
	chain := []*model.Server{target}
	visited := map[uint]bool{target.ID: true}

	current := target
	for current.JumpHostID != nil {
		if len(chain) > maxJumpDepth {
			return nil, ErrJumpChainTooDeep
		}
		if visited[*current.JumpHostID] {
			return nil, ErrJumpChainCycle
		}

		jump, err := d.Servers.GetServer(*current.JumpHostID)
		if err != nil {
			return nil, fmt.Errorf("jump host %d: %w", *current.JumpHostID, err)
		}
		visited[jump.ID] = true
		chain = append(chain, jump)
		current = jump
	}

	// The walk collected target-first; dialing wants bastion-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// clientConfig builds the SSH client config for one server from its
// stored credential. Key credentials authenticate with the parsed key,
// password credentials with the password. Host keys are not verified;
// the panel manages the fleet it connects to.
func (d *Dialer) clientConfig(srv *model.Server) (*ssh.ClientConfig, error) {
	if srv.CredentialID == nil {
		return nil, ErrNoCredential
	}
	cred, err := d.Credentials.GetCredential(*srv.CredentialID)
	if err != nil {
		return nil, err
	}

	var auth []ssh.AuthMethod
	switch cred.Kind {
	case model.CredentialSSHKey:
		signer, err := ssh.ParsePrivateKey(cred.Secret)
		if err != nil {
			return nil, fmt.Errorf("credential %q: %w", cred.Name, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	default:
		auth = append(auth, ssh.Password(string(cred.Secret)))
	}

	user := srv.SSHUser
	if user == "" {
		user = cred.Username
	}
	if user == "" {
		user = "root"
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}, nil
}

func sshAddr(srv *model.Server) string {
	port := srv.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(srv.Host, strconv.Itoa(port))
}

// Connect dials the target through its jump chain. The returned cleanup
// closes every hop and is safe to call after a partial failure path has
// already returned.
func (d *Dialer) Connect(target *model.Server) (*ssh.Client, func(), error) {
	chain, err := d.ResolveChain(target)
	if err != nil {
		return nil, nil, err
	}

	var clients []*ssh.Client
	cleanup := func() {
		for i := len(clients) - 1; i >= 0; i-- {
			_ = clients[i].Close()
		}
	}

	var previous *ssh.Client
	for _, hop := range chain {
		cfg, err := d.clientConfig(hop)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("server %q: %w", hop.Name, err)
		}

		var client *ssh.Client
		if previous == nil {
			client, err = ssh.Dial("tcp", sshAddr(hop), cfg)
		} else {
			var conn net.Conn
			conn, err = previous.Dial("tcp", sshAddr(hop))
			if err == nil {
				var sshConn ssh.Conn
				var chans <-chan ssh.NewChannel
				var reqs <-chan *ssh.Request
				sshConn, chans, reqs, err = ssh.NewClientConn(conn, sshAddr(hop), cfg)
				if err == nil {
					client = ssh.NewClient(sshConn, chans, reqs)
				}
			}
		}
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("dial %q: %w", hop.Name, err)
		}

		clients = append(clients, client)
		previous = client
	}

	return previous, cleanup, nil
}
