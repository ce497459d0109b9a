package endpoints

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/model"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/middleware"
	"github.com/opsdeck/opsdeck/pkg/server/store"
)

// DeviceRequest represents the create/update network device request body
type DeviceRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=128"`
	Address       string `json:"address" validate:"required"`
	Vendor        string `json:"vendor"`
	Model         string `json:"model"`
	DeviceType    string `json:"device_type" validate:"omitempty,oneof=switch router firewall ap other"`
	ProbePort     int    `json:"probe_port" validate:"omitempty,min=1,max=65535"`
	SNMPCommunity string `json:"snmp_community"`
	CredentialID  *uint  `json:"credential_id"`
	Notes         string `json:"notes"`
}

// RegisterDevicesEndpoints registers network device endpoints
func RegisterDevicesEndpoints(s *server.Server) {
	devicesStore := s.DevicesStore
	credentialsStore := s.CredentialsStore
	metricsStore := s.MetricsStore
	cfg := s.Config
	auth := middleware.NewTokenAuthenticator(s.Issuer, cfg.TrustedProxies)

	router := s.Router.PathPrefix("/api/devices").Subrouter()
	router.Use(auth.Middleware)

	router.HandleFunc("", handleListDevices(devicesStore, cfg)).Methods("GET")
	router.HandleFunc("", middleware.RequireOperator(handleCreateDevice(devicesStore, credentialsStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}", handleGetDevice(devicesStore)).Methods("GET")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleUpdateDevice(devicesStore, credentialsStore))).Methods("PUT")
	router.HandleFunc("/{id:[0-9]+}", middleware.RequireOperator(handleDeleteDevice(devicesStore))).Methods("DELETE")
	router.HandleFunc("/{id:[0-9]+}/ping", middleware.RequireOperator(handlePingDevice(devicesStore))).Methods("POST")
	router.HandleFunc("/{id:[0-9]+}/metrics", handleDeviceMetrics(devicesStore, metricsStore, cfg)).Methods("GET")
}

func checkDeviceCredential(w http.ResponseWriter, credentialID *uint, credentialsStore store.CredentialsStore) bool {
	if credentialID == nil {
		return true
	}
	if _, err := credentialsStore.GetCredential(*credentialID); err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			respondWithError(w, http.StatusBadRequest, "Referenced credential does not exist")
			return false
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	return true
}

func handleListDevices(devicesStore store.DevicesStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, offset := listParams(r, cfg)

		if wantsCount(r) {
			count, err := devicesStore.CountDevices(search)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
			return
		}

		devices, err := devicesStore.ListDevices(search, limit, offset)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, devices)
	}
}

func handleCreateDevice(devicesStore store.DevicesStore, credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		var req DeviceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkDeviceCredential(w, req.CredentialID, credentialsStore) {
			return
		}

		device := &model.NetworkDevice{
			Name:          req.Name,
			Address:       req.Address,
			Vendor:        req.Vendor,
			Model:         req.Model,
			DeviceType:    req.DeviceType,
			ProbePort:     req.ProbePort,
			SNMPCommunity: req.SNMPCommunity,
			CredentialID:  req.CredentialID,
			Notes:         req.Notes,
		}

		if err := devicesStore.CreateDevice(device); err != nil {
			if errors.Is(err, store.ErrDeviceNameTaken) {
				audit.Log(audit.ResourceEvent{
					Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
					Kind: "device", Name: req.Name, Success: false, ErrorMessage: "name taken",
				})
				respondWithError(w, http.StatusConflict, "Device name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionCreate,
			Kind: "device", ResourceID: idString(device.ID), Name: device.Name, Success: true,
		})
		respondWithJSON(w, http.StatusCreated, device)
	}
}

func handleGetDevice(devicesStore store.DevicesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		device, err := devicesStore.GetDevice(id)
		if err != nil {
			if errors.Is(err, store.ErrDeviceNotFound) {
				respondWithError(w, http.StatusNotFound, "Device not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, device)
	}
}

func handleUpdateDevice(devicesStore store.DevicesStore, credentialsStore store.CredentialsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var req DeviceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !checkDeviceCredential(w, req.CredentialID, credentialsStore) {
			return
		}

		device, err := devicesStore.GetDevice(id)
		if err != nil {
			if errors.Is(err, store.ErrDeviceNotFound) {
				respondWithError(w, http.StatusNotFound, "Device not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		device.Name = req.Name
		device.Address = req.Address
		device.Vendor = req.Vendor
		device.Model = req.Model
		if req.DeviceType != "" {
			device.DeviceType = req.DeviceType
		}
		if req.ProbePort != 0 {
			device.ProbePort = req.ProbePort
		}
		device.SNMPCommunity = req.SNMPCommunity
		device.CredentialID = req.CredentialID
		device.Notes = req.Notes

		if err := devicesStore.UpdateDevice(device); err != nil {
			if errors.Is(err, store.ErrDeviceNameTaken) {
				respondWithError(w, http.StatusConflict, "Device name already taken")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionUpdate,
			Kind: "device", ResourceID: idString(device.ID), Name: device.Name, Success: true,
		})
		respondWithJSON(w, http.StatusOK, device)
	}
}

func handleDeleteDevice(devicesStore store.DevicesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, clientIP := requestIdentity(r)

		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := devicesStore.DeleteDevice(id); err != nil {
			if errors.Is(err, store.ErrDeviceNotFound) {
				respondWithError(w, http.StatusNotFound, "Device not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.ResourceEvent{
			Username: actor, ClientIP: clientIP, Operation: model.ActionDelete,
			Kind: "device", ResourceID: idString(id), Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handlePingDevice(devicesStore store.DevicesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		device, err := devicesStore.GetDevice(id)
		if err != nil {
			if errors.Is(err, store.ErrDeviceNotFound) {
				respondWithError(w, http.StatusNotFound, "Device not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		addr := net.JoinHostPort(device.Address, strconv.Itoa(device.ProbePort))
		respondWithJSON(w, http.StatusOK, tcpPing(addr))
	}
}

func handleDeviceMetrics(devicesStore store.DevicesStore, metricsStore store.MetricsStore, cfg *config.OpsdeckConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := devicesStore.GetDevice(id); err != nil {
			if errors.Is(err, store.ErrDeviceNotFound) {
				respondWithError(w, http.StatusNotFound, "Device not found")
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

		samples, err := metricsStore.DeviceMetrics(id, since, until, limit)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, samples)
	}
}
