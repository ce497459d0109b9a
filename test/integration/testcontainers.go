package integration

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/endpoints"
	"github.com/opsdeck/opsdeck/pkg/token"
	"github.com/opsdeck/opsdeck/pkg/vault"
)

// testTokenSecret signs session tokens for both inline and binary servers,
// so tokens issued by one are accepted by the other.
const testTokenSecret = "opsdeck-integration-token-secret-0123456789"

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB            *gorm.DB
	RawDB         *sql.DB
	Container     testcontainers.Container
	ServerURL     string
	DatabaseURL   string // Connection string for the test database
	DataKey       []byte
	Cipher        vault.SymmetricCipher
	HTTPClient    *http.Client
	Cancel        context.CancelFunc
	ServerProcess *exec.Cmd
	InlineServer  *server.Server // For inline mode
	InlineMode    bool
	BinaryPath    string
}

// runMode selects how scenarios get a server: the built opsdeckctl binary
// named by OPSDECK_BINARY, or an in-process instance with OPSDECK_INLINE=1.
type runMode struct {
	inline     bool
	binaryPath string
}

func resolveRunMode() (runMode, error) {
	mode := runMode{
		inline:     os.Getenv("OPSDECK_INLINE") == "1",
		binaryPath: os.Getenv("OPSDECK_BINARY"),
	}

	if mode.inline {
		log.Println("Using inline server mode")
		return mode, nil
	}
	if mode.binaryPath == "" {
		return mode, fmt.Errorf("Either OPSDECK_BINARY or OPSDECK_INLINE=1 is required.\n\nBinary mode:\n  go build -o opsdeckctl ./cmd/opsdeckctl\n  INTEGRATION_TEST=1 OPSDECK_BINARY=$(pwd)/opsdeckctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 OPSDECK_INLINE=1 go test -v ./test/integration/...")
	}
	if _, err := os.Stat(mode.binaryPath); err != nil {
		return mode, fmt.Errorf("OPSDECK_BINARY path does not exist: %s", mode.binaryPath)
	}
	log.Printf("Using binary: %s", mode.binaryPath)
	return mode, nil
}

// NewTestContext brings up a throwaway postgres container, migrates it,
// and starts a panel server against it.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	mode, err := resolveRunMode()
	if err != nil {
		return nil, err
	}

	pgContainer, connStr, err := startPostgres(ctx)
	if err != nil {
		return nil, err
	}

	// From here on every failure path tears the container down
	ready := false
	defer func() {
		if !ready {
			_ = pgContainer.Terminate(ctx)
		}
	}()

	db, rawDB, err := openTestDB(connStr)
	if err != nil {
		return nil, err
	}

	if err := applyMigrations(rawDB, filepath.Join(projectRoot, "db", "migrations")); err != nil {
		return nil, err
	}

	dataKey := make([]byte, 32)
	for i := range dataKey {
		dataKey[i] = byte(i)
	}
	cipher, err := vault.NewSymmetric(dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	// Fixtures and assertions encrypt/decrypt through the model hooks
	db = db.WithContext(vault.WithCipher(context.Background(), cipher))

	serverPort := "18080" // Use a fixed port for testing
	serverURL := fmt.Sprintf("http://127.0.0.1:%s", serverPort)

	var serverProcess *exec.Cmd
	var inlineServer *server.Server
	var cancel context.CancelFunc

	if mode.inline {
		inlineServer, cancel, err = startInlineServer(db, cipher, serverPort)
	} else {
		serverProcess, cancel, err = startBinary(mode.binaryPath, connStr, dataKey, serverPort)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	if err := waitForServer(serverURL, 30*time.Second); err != nil {
		cancel()
		if serverProcess != nil && serverProcess.Process != nil {
			_ = serverProcess.Process.Kill()
		}
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	ready = true
	return &TestContext{
		DB:            db,
		RawDB:         rawDB,
		Container:     pgContainer,
		ServerURL:     serverURL,
		DatabaseURL:   connStr,
		DataKey:       dataKey,
		Cipher:        cipher,
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		Cancel:        cancel,
		ServerProcess: serverProcess,
		InlineServer:  inlineServer,
		InlineMode:    mode.inline,
		BinaryPath:    mode.binaryPath,
	}, nil
}

// startPostgres runs a postgres container and returns it along with a
// host-reachable connection string.
func startPostgres(ctx context.Context) (*tcpostgres.PostgresContainer, string, error) {
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("opsdeck_test"),
		tcpostgres.WithUsername("opsdeck"),
		tcpostgres.WithPassword("opsdeck"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to build connection string: %w", err)
	}
	return pgContainer, connStr, nil
}

// openTestDB connects GORM for fixture setup and assertions, and exposes
// the raw handle for migrations.
func openTestDB(connStr string) (*gorm.DB, *sql.DB, error) {
	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rawDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get raw db: %w", err)
	}
	return db, rawDB, nil
}

// startInlineServer starts the server in-process (no binary needed)
func startInlineServer(db *gorm.DB, cipher vault.SymmetricCipher, port string) (*server.Server, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg, err := config.Load()
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	issuer := token.NewIssuer([]byte(testTokenSecret), cfg.TokenTTL())

	// Create and configure server
	s := server.NewServer(cfg, cipher, issuer, db, "127.0.0.1", port)
	endpoints.RegisterAll(s)

	// The event hub must run for heartbeat and monitoring broadcasts. The
	// background checkers stay off so scenarios control status transitions.
	go s.Hub.Run(ctx)

	// Start server in background
	go func() {
		_ = s.Start()
	}()

	return s, cancel, nil
}

// startBinary starts the opsdeckctl server binary
func startBinary(binaryPath, dbURL string, dataKey []byte, port string) (*exec.Cmd, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Use --no-migrate since we already ran migrations in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", port)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+dbURL,
		"OPSDECK_DATA_KEY="+base64.StdEncoding.EncodeToString(dataKey),
		"OPSDECK_TOKEN_SECRET="+testTokenSecret,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start binary: %w", err)
	}

	return cmd, cancel, nil
}

// waitForServer polls the status endpoint until the server answers 200 or
// the timeout passes
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/api/status")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Cancel != nil {
		tc.Cancel()
	}
	if tc.ServerProcess != nil && tc.ServerProcess.Process != nil {
		_ = tc.ServerProcess.Process.Kill()
		_ = tc.ServerProcess.Wait()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// findProjectRoot walks upward from the working directory until it hits a
// go.mod, so the suite works from the repo root and from test/integration.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("project root not found (no go.mod above %s)", dir)
		}
		dir = parent
	}
}

// applyMigrations executes the SQL migration files in lexical order. Only
// the up files run; the directory carries paired down migrations.
func applyMigrations(db *sql.DB, migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			// Ignore errors for idempotent migrations
			log.Printf("Migration %s: %v (may be expected)", filepath.Base(file), err)
		}
	}

	return nil
}
