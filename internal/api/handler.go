package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/cargo-loader/internal/cargo"
	"github.com/eugenenazirov/cargo-loader/internal/manifest"
	"github.com/eugenenazirov/cargo-loader/internal/packing"
	"github.com/eugenenazirov/cargo-loader/internal/storage"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	loggerContextKey    contextKey = "logger"
)

const maxBodyBytes = 1 << 20

// Handler wires packing and storage dependencies into HTTP handlers.
type Handler struct {
	storage          storage.Storage
	defaultAlgorithm packing.Algorithm

	clock func() time.Time

	mu        sync.RWMutex
	updatedAt map[string]time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithDefaultAlgorithm selects the strategy used when a load request names none.
func WithDefaultAlgorithm(algorithm packing.Algorithm) HandlerOption {
	return func(h *Handler) {
		h.defaultAlgorithm = algorithm
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage:          store,
		defaultAlgorithm: packing.DefaultAlgorithm,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		updatedAt: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MarkManifestUpdated records the current time as the manifest's last update.
func (h *Handler) MarkManifestUpdated(name string) {
	h.mu.Lock()
	h.updatedAt[strings.TrimSpace(name)] = h.clock()
	h.mu.Unlock()
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := algorithmsResponse{
		Algorithms:         packing.Algorithms(),
		Default:            h.defaultAlgorithm,
		TrolleyMaxWeightKg: packing.TrolleyMaxWeightKg,
		CargoMaxWeightKg:   cargo.MaxWeightKg,
		CargoMaxVolumeM3:   cargo.MaxVolumeM3,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListManifests(w http.ResponseWriter, r *http.Request) {
	_ = r
	names, err := h.storage.ListManifests()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, manifestListResponse{Manifests: names})
}

func (h *Handler) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	name := manifestName(r)
	items, err := h.storage.GetManifest(name)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, manifestResponse{
		Name:      name,
		Items:     toItemDTOs(items),
		UpdatedAt: h.manifestUpdatedAt(name),
	})
}

func (h *Handler) handlePutManifest(w http.ResponseWriter, r *http.Request) {
	name := manifestName(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var items []cargo.Item
	if isYAML(r.Header.Get("Content-Type")) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request", "unable to read request body")
			return
		}
		items, err = manifest.Parse(data)
		if err != nil {
			writeCargoError(w, err)
			return
		}
	} else {
		var req manifestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
			return
		}
		var err error
		items, err = fromItemDTOs(req.Items)
		if err != nil {
			writeCargoError(w, err)
			return
		}
	}

	if err := h.storage.PutManifest(name, items); err != nil {
		writeStorageError(w, err)
		return
	}
	h.MarkManifestUpdated(name)

	writeJSON(w, http.StatusOK, manifestResponse{
		Name:      name,
		Items:     toItemDTOs(items),
		UpdatedAt: h.manifestUpdatedAt(name),
		Message:   "Manifest stored successfully",
	})
}

func (h *Handler) handleDeleteManifest(w http.ResponseWriter, r *http.Request) {
	name := manifestName(r)
	if err := h.storage.DeleteManifest(name); err != nil {
		writeStorageError(w, err)
		return
	}

	h.mu.Lock()
	delete(h.updatedAt, name)
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	algorithm := h.defaultAlgorithm
	if req.Algorithm != "" {
		parsed, err := packing.ParseAlgorithm(req.Algorithm)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid algorithm", err.Error())
			return
		}
		algorithm = parsed
	}

	items, err := fromItemDTOs(req.Items)
	if err != nil {
		writeCargoError(w, err)
		return
	}

	for _, raw := range req.Cargo {
		item, err := cargo.Parse(raw)
		if err != nil {
			writeCargoError(w, err)
			return
		}
		items = append(items, item)
	}

	if req.Manifest != "" {
		stored, err := h.storage.GetManifest(req.Manifest)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		items = append(items, stored...)
	}

	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "provide items, cargo strings or a manifest name")
		return
	}

	start := time.Now()
	result, err := packing.Run(algorithm, items)
	elapsed := time.Since(start)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	loggerFromContext(r.Context()).Info("cargo loaded",
		zap.String("algorithm", string(result.Algorithm)),
		zap.Int("items", result.Items),
		zap.Int("trolleys", result.Trolleys),
		zap.Duration("duration", elapsed),
	)

	writeJSON(w, http.StatusOK, loadResponse{
		Algorithm:         result.Algorithm,
		Items:             result.Items,
		Trolleys:          result.Trolleys,
		Message:           result.Summary(),
		CalculationTimeMs: elapsed.Milliseconds(),
	})
}

// manifestName matches the name normalisation applied by storage.
func manifestName(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("name"))
}

func (h *Handler) manifestUpdatedAt(name string) time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.updatedAt[name]
}

func isYAML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	default:
		return false
	}
}

type itemDTO struct {
	Name     string  `json:"name"`
	WeightKg float64 `json:"weightKg"`
	LengthM  float64 `json:"lengthM"`
	WidthM   float64 `json:"widthM"`
	HeightM  float64 `json:"heightM"`
}

func toItemDTOs(items []cargo.Item) []itemDTO {
	out := make([]itemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, itemDTO{
			Name:     item.Name(),
			WeightKg: item.WeightKg(),
			LengthM:  item.LengthM(),
			WidthM:   item.WidthM(),
			HeightM:  item.HeightM(),
		})
	}
	return out
}

func fromItemDTOs(dtos []itemDTO) ([]cargo.Item, error) {
	items := make([]cargo.Item, 0, len(dtos))
	for _, dto := range dtos {
		item, err := cargo.New(dto.Name, dto.WeightKg, dto.LengthM, dto.WidthM, dto.HeightM)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

type manifestRequest struct {
	Items []itemDTO `json:"items"`
}

type loadRequest struct {
	Algorithm string    `json:"algorithm"`
	Items     []itemDTO `json:"items"`
	Cargo     []string  `json:"cargo"`
	Manifest  string    `json:"manifest"`
}

type loadResponse struct {
	Algorithm         packing.Algorithm `json:"algorithm"`
	Items             int               `json:"items"`
	Trolleys          int               `json:"trolleys"`
	Message           string            `json:"message"`
	CalculationTimeMs int64             `json:"calculationTimeMs"`
}

type algorithmsResponse struct {
	Algorithms         []packing.Algorithm `json:"algorithms"`
	Default            packing.Algorithm   `json:"default"`
	TrolleyMaxWeightKg float64             `json:"trolleyMaxWeightKg"`
	CargoMaxWeightKg   float64             `json:"cargoMaxWeightKg"`
	CargoMaxVolumeM3   float64             `json:"cargoMaxVolumeM3"`
}

type manifestListResponse struct {
	Manifests []string `json:"manifests"`
}

type manifestResponse struct {
	Name      string    `json:"name"`
	Items     []itemDTO `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeCargoError(w http.ResponseWriter, err error) {
	var ce *cargo.Error
	if !errors.As(err, &ce) {
		writeInternalError(w, err)
		return
	}

	status := http.StatusBadRequest
	message := "Malformed cargo"
	switch ce.Kind {
	case cargo.KindValidation:
		status = http.StatusUnprocessableEntity
		message = "Invalid cargo item"
	case cargo.KindResource:
		status = http.StatusInternalServerError
		message = "Internal error"
	}

	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: err.Error(),
		Kind:    string(ce.Kind),
	})
}

func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrManifestNotFound):
		writeError(w, http.StatusNotFound, "Manifest not found", err.Error())
	case errors.Is(err, storage.ErrInvalidManifest):
		writeError(w, http.StatusBadRequest, "Invalid manifest", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
