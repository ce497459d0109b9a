package endpoints

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// DatabaseRequest represents the create/update managed database request body
type DatabaseRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=128"`
	Engine       string `json:"engine" validate:"required,oneof=postgres mysql redis"`
	Host         string `json:"host" validate:"required"`
	Port         int    `json:"port" validate:"omitempty,min=1,max=65535"`
	DBName       string `json:"db_name"`
	Username     string `json:"username"`
	CredentialID *uint  `json:"credential_id"`
	ServerID     *uint  `json:"server_id"`
	Notes        string `json:"notes"`
}

// RegisterDatabasesEndpoints registers managed database endpoints. Backup
// triggering lives with the backup endpoints.
func RegisterDatabasesEndpoints(s *server.Server) {
	databasesStore := s.DatabasesStore
	serversStore := s.ServersStore
	credentialsStore := s.CredentialsStore
	metricsStore := s.MetricsStore
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)

	router := s.Router.PathPrefix("/api/databases").Subrouter()
	router.Use(auth.Middleware)

	router.HandleFunc("", handleListDatabases(databasesStore, cfg)).Methods("GET")
	router.HandleFunc("", middleware.RequireOperator(handleCreateDatabase(databasesStore, serversStore, credentialsStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}", handleGetDatabase(databasesStore)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleUpdateDatabase(databasesStore, serversStore, credentialsStore))).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleDeleteDatabase(databasesStore))).Methods("DELETE")
	router.HandleFunc("/{id:[0-9]+}/ping", middleware.RequireOperator(handlePingDatabase(databasesStore, credentialsStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/metrics", handleDatabaseMetrics(databasesStore, metricsStore, cfg)).Methods("GET")
}

func checkDatabaseRefs(w http.ResponseWriter, req *DatabaseRequest, serversStore store.ServersStore, credentialsStore store.CredentialsStore) bool {
	if req.CredentialID != nil {
		if _, err := credentialsStore.GetCredential(*req.CredentialID); err != nil {
			if errors.Is(err, store.ErrCredentialNotFound) {
				respondWithError(w, http.StatusBadRequest, "Referenced credential does not exist")
				return false
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return false
		}
	}
	if req.ServerID != nil {
		if _, err := serversStore.GetServer(*req.ServerID); err != nil {
			if errors.Is(err, store.ErrServerNotFound) {
				respondWithError(w, http.StatusBadRequest, "Referenced server does not exist")
				return false
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return false
		}
	}
	return true
}

func handleListDatabases(databasesStore store.DatabasesStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, offset := listParams(r, cfg)

		if wantsCount(r) {
			count, err := databasesStore.CountDatabases(search)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
			return
		}

		databases, err := databasesStore.ListDatabases(search, limit, offset)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, databases)
	}
}

func handleCreateDatabase(databasesStore store.DatabasesStore, serversStore store.ServersStore, credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		var req DatabaseRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkDatabaseRefs(w, &req, serversStore, credentialsStore) {
			return
		}

		database := &model.Database{
			Name:         req.Name,
			Engine:       req.Engine,
			Host:         req.Host,
			Port:         req.Port,
			DBName:       req.DBName,
			Username:     req.Username,
			CredentialID: req.CredentialID,
			ServerID:     req.ServerID,
			Notes:        req.Notes,
		}

		if err := databasesStore.CreateDatabase(database); err != nil {
			if errors.Is(err, store.ErrDatabaseNameTaken) {
				audit.Log(audit.ResourceEvent{
					Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
					Kind: "database", Name: req.Name, Success: false, ErrorMessage: "name taken",
				})
				respondWithError(w, http.StatusConflict, "Database name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
			Kind: "database", ResourceID: idString(database.ID), Name: database.Name, Success: true,
		})
		respondWithJSON(w, http.StatusCreated, database)
	}
}

func handleGetDatabase(databasesStore store.DatabasesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		database, err := databasesStore.GetDatabase(id)
		if err != nil {
			if errors.Is(err, store.ErrDatabaseNotFound) {
				respondWithError(w, http.StatusNotFound, "Database not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, database)
	}
}

func handleUpdateDatabase(databasesStore store.DatabasesStore, serversStore store.ServersStore, credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req DatabaseRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkDatabaseRefs(w, &req, serversStore, credentialsStore) {
			return
		}

		database, err := databasesStore.GetDatabase(id)
		if err != nil {
			if errors.Is(err, store.ErrDatabaseNotFound) {
				respondWithError(w, http.StatusNotFound, "Database not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		database.Name = req.Name
		database.Engine = req.Engine
		database.Host = req.Host
		if req.Port != 0 {
			database.Port = req.Port
		}
		database.DBName = req.DBName
		database.Username = req.Username
		database.CredentialID = req.CredentialID
		database.ServerID = req.ServerID
		database.Notes = req.Notes

		if err := databasesStore.UpdateDatabase(database); err != nil {
			if errors.Is(err, store.ErrDatabaseNameTaken) {
				respondWithError(w, http.StatusConflict, "Database name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "database", ResourceID: idString(database.ID), Name: database.Name, Success: true,
		})
		respondWithJSON(w, http.StatusOK, database)
	}
}

func handleDeleteDatabase(databasesStore store.DatabasesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := databasesStore.DeleteDatabase(id); err != nil {
			if errors.Is(err, store.ErrDatabaseNotFound) {
				respondWithError(w, http.StatusNotFound, "Database not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
			Kind: "database", ResourceID: idString(id), Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// postgresPing opens a throwaway connection and round-trips a protocol
// level ping. lib/pq does not implement sslmode=prefer, so probes run
// with sslmode=disable.
func postgresPing(database *model.Database, password string) PingResponse {
	path := "/postgres"
	if database.DBName != "" {
		path = "/" + database.DBName
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(database.Host, strconv.Itoa(database.Port)),
		Path:   path,
	}
	if database.Username != "" {
		u.User = url.UserPassword(database.Username, password)
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	q.Set("connect_timeout", "5")
	u.RawQuery = q.Encode()

	start := time.Now()
	conn, err := sql.Open("postgres", u.String())
	if err != nil {
		return PingResponse{Reachable: false, Error: err.Error()}
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	err = conn.PingContext(ctx)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		return PingResponse{Reachable: false, LatencyMs: latency, Error: err.Error()}
	}
	return PingResponse{Reachable: true, LatencyMs: latency}
}

func handlePingDatabase(databasesStore store.DatabasesStore, credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		database, err := databasesStore.GetDatabase(id)
		if err != nil {
			if errors.Is(err, store.ErrDatabaseNotFound) {
				respondWithError(w, http.StatusNotFound, "Database not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// Engines without a driver on board get a plain TCP probe.
		if database.Engine != model.EnginePostgres {
			addr := net.JoinHostPort(database.Host, strconv.Itoa(database.Port))
			respondWithJSON(w, http.StatusOK, tcpPing(addr))
			return
		}

		var password string
		if database.CredentialID != nil {
			cred, err := credentialsStore.GetCredential(*database.CredentialID)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			password = string(cred.Secret)
		}
		respondWithJSON(w, http.StatusOK, postgresPing(database, password))
	}
}

func handleDatabaseMetrics(databasesStore store.DatabasesStore, metricsStore store.MetricsStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := databasesStore.GetDatabase(id); err != nil {
			if errors.Is(err, store.ErrDatabaseNotFound) {
				respondWithError(w, http.StatusNotFound, "Database not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		since, until, err := timeRange(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, limit, _ := listParams(r, cfg)

		samples, err := metricsStore.DatabaseMetrics(id, since, until, limit)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, samples)
	}
}
