package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sirikarn-cs/SumRate/internal/api"
	"github.com/sirikarn-cs/SumRate/internal/db"
	"github.com/sirikarn-cs/SumRate/internal/middleware"
	"github.com/sirikarn-cs/SumRate/internal/utils"
)

func main() {
	addr := utils.SafeEnv("SUMRATE_ADDR", ":8080")
	catalogSource := utils.SafeEnv("SUMRATE_CATALOG", "catalog.json")
	commit := utils.SafeEnv("SUMRATE_COMMIT", "")
	buildTime := utils.SafeEnv("SUMRATE_BUILD_TIME", "")

	store := openStore()

	mux := http.NewServeMux()
	api.NewRouter(store, catalogSource).Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "SumRate API",
			"locale":     locale,
			"msg":        utils.T(locale, "health.ok"),
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// Frontend serving strategy (priority):
	// 1) Static files if SUMRATE_STATIC_DIR is set (fullstack image)
	// 2) Dev proxy if SUMRATE_DEV_FRONTEND_URL is set (proxy / to the dev server)
	if staticDir := utils.SafeEnv("SUMRATE_STATIC_DIR", ""); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	} else if devURL := utils.SafeEnv("SUMRATE_DEV_FRONTEND_URL", ""); devURL != "" {
		if u, err := url.Parse(devURL); err == nil {
			rp := httputil.NewSingleHostReverseProxy(u)
			// Ensure no-store headers also apply to proxied responses
			rp.ModifyResponse = func(res *http.Response) error {
				res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
				res.Header.Set("Pragma", "no-cache")
				res.Header.Set("Expires", "0")
				return nil
			}
			mux.Handle("/", rp)
		} else {
			log.Printf("invalid SUMRATE_DEV_FRONTEND_URL=%q: %v", devURL, err)
		}
	}

	handler := middleware.NoStore(middleware.CORS(middleware.SecureHeaders(middleware.LocaleMiddleware(middleware.WithAuth(mux)))))

	log.Printf("SumRate server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStore prefers sqlite; without SUMRATE_SQLITE_PATH results only live in memory.
func openStore() api.Store {
	path := utils.SafeEnv("SUMRATE_SQLITE_PATH", "")
	if path == "" {
		log.Printf("SUMRATE_SQLITE_PATH not set, using in-memory store")
		return api.NewMemoryStore()
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Fatalf("open sqlite %s: %v", path, err)
	}
	if err := db.RunMigrations(conn, utils.SafeEnv("SUMRATE_MIGRATIONS_DIR", "")); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	store, err := db.NewStore(conn)
	if err != nil {
		log.Fatalf("init sqlite store: %v", err)
	}
	log.Printf("using sqlite store at %s", path)
	return store
}
