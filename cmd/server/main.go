package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/asset"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/auth"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/config"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/engine"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/exporthttp"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/fontshape"
	mw "github.com/kerfcraft/kerfcraft/backend-go/internal/middleware"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/pathops"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/project"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/session"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/store"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/svgexport"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/trace"
)

// The playground design allows anonymous access for trying the tool. It is
// never persisted.
const playgroundDesignID = "dsgn_playground"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool)

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	projectService := project.NewService(st)
	projectHandler := project.NewHandler(projectService)

	fonts := fontshape.NewService(&fontshape.BoxShaper{Known: knownFonts(cfg.FontDir)}, cfg.DefaultFontID)
	paths := pathops.NewCompoundEngine()

	exporter := &svgexport.Exporter{Fonts: fonts, Paths: paths}
	exportHandler := exporthttp.NewHandler(exporter)

	hub := session.NewHub(
		func() *engine.Engine { return engine.New(fonts, paths) },
		func(ctx context.Context, designID string) (string, error) {
			// The playground design is in-memory only.
			if designID == playgroundDesignID {
				return "", nil
			}
			return projectService.LoadDocumentJSON(ctx, designID)
		},
		func(ctx context.Context, designID, docJSON string) error {
			if designID == playgroundDesignID {
				return nil
			}
			return projectService.SaveDocumentJSON(ctx, designID, docJSON)
		},
	)
	go hub.Run(ctx)

	assetHandler := asset.NewHandler(cfg.AssetDir)
	traceHandler := trace.NewHandler(trace.NewClient(cfg.TraceURL))

	origins := strings.Split(cfg.AllowedOrigins, ",")

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset endpoints (public, used before a design is saved)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Export endpoints (public, the document rides in the body)
	r.HandleFunc("/export/svg", exportHandler.ExportSVG).Methods("POST", "OPTIONS")
	r.HandleFunc("/export/meta", exportHandler.ExportMeta).Methods("POST", "OPTIONS")

	// Trace proxy (public, used while composing a design)
	r.HandleFunc("/trace", traceHandler.Trace).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.RequireAuth)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/designs", projectHandler.List).Methods("GET")
	api.HandleFunc("/designs", projectHandler.Create).Methods("POST")
	api.HandleFunc("/designs/{designId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/designs/{designId}", projectHandler.Rename).Methods("PATCH")
	api.HandleFunc("/designs/{designId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/designs/{designId}/rebuild", projectHandler.Rebuild).Methods("POST")
	api.HandleFunc("/designs/{designId}/snapshots/latest", projectHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/designs/{designId}/snapshots", projectHandler.SaveSnapshot).Methods("POST")

	// WebSocket endpoint for live canvas sessions
	r.HandleFunc("/ws/design/{designId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, projectService, origins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: cancel the hub context first so every open room
	// saves a final snapshot, then drain HTTP.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// knownFonts lists installed font ids from the font directory. An empty
// list leaves the shaper accepting any id, which suits development.
func knownFonts(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("read font dir", "error", err, "dir", dir)
		return nil
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := strings.ToLower(filepath.Ext(name)); ext == ".ttf" || ext == ".otf" {
			ids = append(ids, strings.TrimSuffix(name, filepath.Ext(name)))
		}
	}
	return ids
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, projects *project.Service, origins []string) {
	vars := mux.Vars(r)
	designID := vars["designId"]

	var userID string
	var displayName string

	if designID == playgroundDesignID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Browsers cannot set headers on websocket upgrades, so the token
		// rides a query param here.
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		owner, err := projects.IsOwner(r.Context(), designID, userID)
		if err != nil || !owner {
			http.Error(w, "design not accessible", http.StatusForbidden)
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		patterns = append(patterns, strings.TrimPrefix(strings.TrimPrefix(o, "http://"), "https://"))
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: patterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := session.NewClient(hub, conn, userID, displayName, designID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
