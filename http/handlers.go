package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"heartrisk/db"
	"heartrisk/monitoring"
	"heartrisk/service"
)

const (
	healthPath      = "/home_endpoint/"
	classifierPath  = "/classifier/"
	predictionsPath = "/predictions/"
	metricsPath     = "/metrics"

	internalErrorMessage = "Internal server error"
)

// PredictionService 处理器依赖的业务接口
type PredictionService interface {
	Health() service.HealthStatus
	Predict(ctx context.Context, req service.Request) (*service.Result, error)
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error)
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type validationResponse struct {
	Detail []service.FieldError `json:"detail"`
}

// Handlers HTTP处理器
type Handlers struct {
	svc PredictionService
}

// RegisterHandlers 注册业务路由，业务路由都经过 auth
func RegisterHandlers(mux *http.ServeMux, svc PredictionService, auth Middleware) {
	h := &Handlers{svc: svc}
	mux.Handle("GET "+healthPath+"{$}", auth(http.HandlerFunc(h.handleHealth)))
	mux.Handle("POST "+classifierPath+"{$}", auth(http.HandlerFunc(h.handleClassifier)))
	mux.Handle("GET "+predictionsPath+"{$}", auth(http.HandlerFunc(h.handlePredictions)))
	mux.Handle("GET "+metricsPath, monitoring.Handler())
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health())
}

func (h *Handlers) handleClassifier(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.svc.Predict(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "limit must be a positive integer"})
			return
		}
		limit = l
	}

	records, err := h.svc.RecentPredictions(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": records})
}

// requestPayload 用指针区分缺失字段与零值
type requestPayload struct {
	Age          *int     `json:"Age"`
	Gender       *string  `json:"Gender"`
	Impulse      *float64 `json:"Impluse"`
	PressureHigh *float64 `json:"Pressure_Hight"`
	PressureLow  *float64 `json:"Pressure_Low"`
	Glucose      *float64 `json:"Glucose"`
	KCM          *float64 `json:"KCM"`
	Troponin     *float64 `json:"Troponin"`
}

var errMalformedBody = errors.New("malformed request body")

// decodeRequest 优先读取 JSON body，否则读取查询参数
func decodeRequest(r *http.Request) (service.Request, error) {
	var payload requestPayload
	verr := &service.ValidationError{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			return service.Request{}, errMalformedBody
		}
	} else {
		payload = payloadFromQuery(r.URL.Query(), verr)
	}

	req := service.Request{}
	require := func(field string, present bool) bool {
		if !present {
			verr.Add(field, "field required")
		}
		return present
	}
	if require("Age", payload.Age != nil) {
		req.Age = *payload.Age
	}
	if require("Gender", payload.Gender != nil) {
		req.Gender = *payload.Gender
	}
	for _, f := range []struct {
		name  string
		value *float64
		dst   *float64
	}{
		{"Impluse", payload.Impulse, &req.Impulse},
		{"Pressure_Hight", payload.PressureHigh, &req.PressureHigh},
		{"Pressure_Low", payload.PressureLow, &req.PressureLow},
		{"Glucose", payload.Glucose, &req.Glucose},
		{"KCM", payload.KCM, &req.KCM},
		{"Troponin", payload.Troponin, &req.Troponin},
	} {
		if require(f.name, f.value != nil) {
			*f.dst = *f.value
		}
	}

	if err := verr.OrNil(); err != nil {
		return service.Request{}, err
	}
	return req, nil
}

func payloadFromQuery(query url.Values, verr *service.ValidationError) requestPayload {
	var payload requestPayload

	if raw, ok := query["Age"]; ok && len(raw) > 0 {
		if age, err := strconv.Atoi(raw[0]); err == nil {
			payload.Age = &age
		} else {
			verr.Add("Age", "value is not a valid integer")
		}
	}
	if raw, ok := query["Gender"]; ok && len(raw) > 0 {
		gender := raw[0]
		payload.Gender = &gender
	}

	floatParam := func(name string) *float64 {
		raw, ok := query[name]
		if !ok || len(raw) == 0 {
			return nil
		}
		value, err := strconv.ParseFloat(raw[0], 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			verr.Add(name, "value is not a valid float")
			return nil
		}
		return &value
	}
	payload.Impulse = floatParam("Impluse")
	payload.PressureHigh = floatParam("Pressure_Hight")
	payload.PressureLow = floatParam("Pressure_Low")
	payload.Glucose = floatParam("Glucose")
	payload.KCM = floatParam("KCM")
	payload.Troponin = floatParam("Troponin")
	return payload
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Detail: verr.Fields})
	case errors.Is(err, errMalformedBody):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
	default:
		zap.L().Error("Request failed",
			zap.String("request_id", monitoring.RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: internalErrorMessage})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}
