package server

import (
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/opsdeck/opsdeck/pkg/backup"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/monitor"
	"github.com/opsdeck/opsdeck/pkg/server/store"
	gormstore "github.com/opsdeck/opsdeck/pkg/server/store/gorm"
	"github.com/opsdeck/opsdeck/pkg/terminal"
	"github.com/opsdeck/opsdeck/pkg/token"
	"github.com/opsdeck/opsdeck/pkg/vault"
)

type Server struct {
	Config   *config.OpsdeckConfig
	Cipher   vault.SymmetricCipher
	Issuer   *token.Issuer
	Router   *mux.Router
	DB       *gorm.DB
	Hub      *monitor.Hub
	Sessions *terminal.Registry
	Backups  *backup.Runner

	UsersStore        store.UsersStore
	ServersStore      store.ServersStore
	DevicesStore      store.DevicesStore
	DatabasesStore    store.DatabasesStore
	SitesStore        store.SitesStore
	ApplicationsStore store.ApplicationsStore
	CredentialsStore  store.CredentialsStore
	BackupsStore      store.BackupsStore
	OperationsStore   store.OperationsStore
	SettingsStore     store.SettingsStore
	MetricsStore      store.MetricsStore
	HealthStore       store.HealthStore
	DashboardStore    store.DashboardStore

	srv *http.Server
}

func NewServer(
	cfg *config.OpsdeckConfig,
	cipher vault.SymmetricCipher,
	issuer *token.Issuer,
	db *gorm.DB,
	host string,
	port string,
) *Server {

	router := mux.NewRouter().UseEncodedPath()

	allowedOrigins := cfg.AllowOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Agent-Key"}),
	)

	srv := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, cors(router)),
		Addr:    host + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	serversStore := gormstore.NewServersStore(db)
	databasesStore := gormstore.NewDatabasesStore(db)
	credentialsStore := gormstore.NewCredentialsStore(db)
	backupsStore := gormstore.NewBackupsStore(db)

	hub := monitor.NewHub()
	dialer := terminal.NewDialer(serversStore, credentialsStore)
	runner := backup.NewRunner(
		backupsStore,
		databasesStore,
		credentialsStore,
		backup.NewExecutor(serversStore, dialer),
		hub,
		cfg,
	)

	return &Server{
		Config:   cfg,
		Cipher:   cipher,
		Issuer:   issuer,
		Router:   router,
		DB:       db,
		Hub:      hub,
		Sessions: terminal.NewRegistry(),
		Backups:  runner,

		UsersStore:        gormstore.NewUsersStore(db),
		ServersStore:      serversStore,
		DevicesStore:      gormstore.NewDevicesStore(db),
		DatabasesStore:    databasesStore,
		SitesStore:        gormstore.NewSitesStore(db),
		ApplicationsStore: gormstore.NewApplicationsStore(db),
		CredentialsStore:  credentialsStore,
		BackupsStore:      backupsStore,
		OperationsStore:   gormstore.NewOperationsStore(db),
		SettingsStore:     gormstore.NewSettingsStore(db),
		MetricsStore:      gormstore.NewMetricsStore(db),
		HealthStore:       gormstore.NewHealthStore(db),
		DashboardStore:    gormstore.NewDashboardStore(db),

		srv: srv,
	}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// StartWithListener serves on an already-bound listener. Tests use this to
// claim a port before the serve goroutine starts.
func (s *Server) StartWithListener(l net.Listener) error {
	return s.srv.Serve(l)
}
