package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/abcfe/abcfe-metadata/api"
	"github.com/abcfe/abcfe-metadata/common/crypto"
	"github.com/abcfe/abcfe-metadata/common/logger"
	"github.com/abcfe/abcfe-metadata/common/utils"
	"github.com/abcfe/abcfe-metadata/metadata"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/abcfe/abcfe-metadata/storage"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const StoreVersion = "1.0.0"

var errPriorStateNotFound = errors.New("prior state not found")

func errRateLimited(reason string) error {
	return fmt.Errorf("rate limited: %s", reason)
}

// get home response
func HomeHandler(wsHub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := InfoResp{
			Name:      "ABCFe Metadata Store",
			Version:   StoreVersion,
			WSClients: wsHub.GetClientCount(),
		}
		sendResp(w, http.StatusOK, info, nil)
	}
}

// unsupported method response
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	sendResp(w, http.StatusMethodNotAllowed, nil, fmt.Errorf("method %s not allowed", r.Method))
}

// get store stats response
func GetStats(db *storage.DB, wsHub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addresses, err := db.Addresses()
		if err != nil {
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}

		stats := StatsResp{
			WSClients: wsHub.GetClientCount(),
			List:      make([]EntrySummary, 0, len(addresses)),
		}
		for _, address := range addresses {
			entry, err := db.Get(address)
			if err != nil {
				sendResp(w, http.StatusInternalServerError, nil, err)
				return
			}
			stats.TotalWrites += entry.WriteCount
			stats.List = append(stats.List, EntrySummary{
				Address:    address,
				TypeID:     entry.Payload.TypeID,
				WriteCount: entry.WriteCount,
				MagicHash:  utils.MagicHashToString(entry.MagicHash),
			})
		}
		stats.Entries = len(stats.List)

		sendResp(w, http.StatusOK, stats, nil)
	}
}

// get stored payload response
func GetMetadata(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := mux.Vars(r)["address"]
		if err := crypto.ValidateAddress(address); err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		entry, err := db.Get(address)
		if errors.Is(err, storage.ErrNotFound) {
			sendResp(w, http.StatusNotFound, nil, err)
			return
		}
		if err != nil {
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}

		writeJSON(w, http.StatusOK, entry.Payload)
	}
}

// get current magic hash response
func GetMagicHash(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := mux.Vars(r)["address"]
		if err := crypto.ValidateAddress(address); err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		entry, err := db.Get(address)
		if errors.Is(err, storage.ErrNotFound) {
			sendResp(w, http.StatusNotFound, nil, err)
			return
		}
		if err != nil {
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}

		writeJSON(w, http.StatusOK, metadata.Ack{MagicHash: utils.MagicHashToString(entry.MagicHash)})
	}
}

// put new state response. A write must chain to the state currently stored
// at the address; otherwise the referenced prior state is reported as 404.
func PutMetadata(db *storage.DB, wsHub *api.WSHub, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := mux.Vars(r)["address"]
		if err := crypto.ValidateAddress(address); err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		if maxBody > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}

		var payload metadata.RemotePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("invalid body: %w", err))
			return
		}

		if payload.Version != prt.PayloadVersion {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("unsupported payload version %d", payload.Version))
			return
		}
		if !prt.EntryType(payload.TypeID).Valid() {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("unknown type id %d", payload.TypeID))
			return
		}

		_, magic, err := metadata.VerifyPayload(address, &payload)
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		_, _, prev, err := payload.Decode()
		if err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		entry, err := db.CompareAndSwap(address, prev, &payload, magic)
		if errors.Is(err, storage.ErrStaleState) {
			logger.Debug("Rejected stale write: ", address)
			sendResp(w, http.StatusNotFound, nil, errPriorStateNotFound)
			return
		}
		if err != nil {
			logger.Error("Failed to store metadata: ", err)
			sendResp(w, http.StatusInternalServerError, nil, err)
			return
		}

		magicHex := utils.MagicHashToString(entry.MagicHash)
		logger.With(
			zap.String("address", address),
			zap.Int32("type", payload.TypeID),
			zap.Uint64("writes", entry.WriteCount),
		).Info("metadata stored")

		wsHub.BroadcastUpdate(api.MetadataUpdate{
			Address:    address,
			TypeID:     payload.TypeID,
			MagicHash:  magicHex,
			WriteCount: entry.WriteCount,
		})

		writeJSON(w, http.StatusOK, metadata.Ack{MagicHash: magicHex})
	}
}

// writeJSON writes a protocol object without the RestResp envelope
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func sendResp(w http.ResponseWriter, statusCode int, data interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := RestResp{
		Success: err == nil,
		Data:    data,
	}

	if err != nil {
		response.Error = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
