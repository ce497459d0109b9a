package integration

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/endpoints"
	"github.com/opsdeck/opsdeck/pkg/token"
	"github.com/opsdeck/opsdeck/pkg/vault"
)

// testPorts hands out one port per started instance, beginning above the
// suite server's fixed 18080.
var testPorts int32 = 19000

func nextPort() int {
	return int(atomic.AddInt32(&testPorts, 1))
}

// ServerConfig holds per-instance settings a scenario can override
type ServerConfig struct {
	TrustedProxies []string
}

// ServerInstance is a server started for a single scenario, separate
// from the suite-wide one.
type ServerInstance struct {
	Server        *server.Server
	ServerURL     string
	Port          int
	Config        ServerConfig
	cancel        context.CancelFunc
	listener      net.Listener
	restoreEnv    func()
	serverProcess *exec.Cmd // For binary mode
}

// StartServer starts a fresh server against the given DB URL, in-process
// or as a child opsdeckctl depending on how the suite was launched.
func StartServer(tc *TestContext, dbURL string, cfg ServerConfig) (*ServerInstance, error) {
	if tc.InlineMode {
		return startInlineInstance(dbURL, tc.Cipher, cfg)
	}
	return startBinaryInstance(tc.BinaryPath, dbURL, tc.DataKey, cfg)
}

// overrideProxyEnv points OPSDECK_TRUSTED_PROXIES at the scenario's
// ranges and returns a restore func for Stop. Inline servers read the
// process-global config, so it has to be reloaded both ways.
func overrideProxyEnv(proxies []string) func() {
	old, had := os.LookupEnv("OPSDECK_TRUSTED_PROXIES")
	_ = os.Setenv("OPSDECK_TRUSTED_PROXIES", strings.Join(proxies, ","))
	_ = config.Reload()

	return func() {
		if had {
			_ = os.Setenv("OPSDECK_TRUSTED_PROXIES", old)
		} else {
			_ = os.Unsetenv("OPSDECK_TRUSTED_PROXIES")
		}
		_ = config.Reload()
	}
}

func startInlineInstance(dbURL string, cipher vault.SymmetricCipher, cfg ServerConfig) (*ServerInstance, error) {
	port := nextPort()

	restore := overrideProxyEnv(cfg.TrustedProxies)
	panelCfg := config.Get()

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dbURL,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		restore()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Credential hooks encrypt and decrypt through the session cipher
	db = db.WithContext(vault.WithCipher(context.Background(), cipher))

	issuer := token.NewIssuer([]byte(testTokenSecret), panelCfg.TokenTTL())
	s := server.NewServer(panelCfg, cipher, issuer, db, "127.0.0.1", strconv.Itoa(port))
	endpoints.RegisterAll(s)

	// Grab the port up front so a clash surfaces here rather than in the
	// background Start
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		restore()
		return nil, fmt.Errorf("failed to create listener on port %d: %w", port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go s.Hub.Run(ctx)

	instance := &ServerInstance{
		Server:     s,
		ServerURL:  fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:       port,
		Config:     cfg,
		cancel:     cancel,
		listener:   listener,
		restoreEnv: restore,
	}

	go func() {
		_ = s.StartWithListener(listener)
	}()

	if err := waitForServer(instance.ServerURL, 10*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return instance, nil
}

func startBinaryInstance(binaryPath, dbURL string, dataKey []byte, cfg ServerConfig) (*ServerInstance, error) {
	port := nextPort()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", strconv.Itoa(port))
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+dbURL,
		"OPSDECK_DATA_KEY="+base64.StdEncoding.EncodeToString(dataKey),
		"OPSDECK_TOKEN_SECRET="+testTokenSecret,
		"OPSDECK_TRUSTED_PROXIES="+strings.Join(cfg.TrustedProxies, ","),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start binary: %w", err)
	}

	instance := &ServerInstance{
		ServerURL:     fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:          port,
		Config:        cfg,
		cancel:        cancel,
		serverProcess: cmd,
	}

	if err := waitForServer(instance.ServerURL, 30*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return instance, nil
}

// Stop shuts the instance down and puts the environment back
func (si *ServerInstance) Stop() {
	if si.cancel != nil {
		si.cancel()
	}
	if si.listener != nil {
		_ = si.listener.Close()
	}
	if si.serverProcess != nil && si.serverProcess.Process != nil {
		_ = si.serverProcess.Process.Kill()
		_ = si.serverProcess.Wait()
	}
	if si.restoreEnv != nil {
		si.restoreEnv()
	}
}
