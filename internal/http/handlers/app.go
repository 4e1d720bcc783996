package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"nexiro/internal/infra"
	"nexiro/internal/middleware"
	"nexiro/internal/pipeline"
	"nexiro/internal/providers/analysis"
)

const defaultMaxBodyBytes = 32 << 20

type App struct {
	Pipeline     *pipeline.Orchestrator
	Analyzer     analysis.Analyzer
	Logger       infra.Logger
	Upgrader     websocket.Upgrader
	MaxBodyBytes int64
}

// NewApp wires the handlers. allowedOrigins gates the WebSocket handshake
// the same way CORS gates plain requests.
func NewApp(p *pipeline.Orchestrator, analyzer analysis.Analyzer, logger infra.Logger, allowedOrigins []string) *App {
	allow := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allow[origin] = struct{}{}
	}
	if analyzer == nil {
		analyzer = analysis.StaticAnalyzer{}
	}
	return &App{
		Pipeline: p,
		Analyzer: analyzer,
		Logger:   logger,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allow[origin]
				return ok
			},
		},
		MaxBodyBytes: defaultMaxBodyBytes,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, errorResponse{Error: kind, Message: message})
}

func (a *App) currentIdentity(r *http.Request) string {
	return middleware.IdentityFromContext(r.Context())
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) error {
	limit := a.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("payload exceeds %d bytes", tooLarge.Limit)
		}
		return errors.New("invalid payload")
	}
	return nil
}
