package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/synkr/synkr/internal/auth"
	"github.com/synkr/synkr/internal/config"
	"github.com/synkr/synkr/internal/handler"
	"github.com/synkr/synkr/internal/hub"
	"github.com/synkr/synkr/internal/logging"
	"github.com/synkr/synkr/internal/store"
)

func main() {
	log := logging.New()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	s, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal("store", zap.Error(err))
	}
	defer s.Close()

	resolver := auth.NewResolver(cfg.JWTSecret, cfg.SessionTTL)
	h := hub.New(log)
	api := handler.NewAPI(s, h, resolver, cfg.HistoryLimit, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handler.Health())
	api.Routes(mux)
	mux.HandleFunc("/ws", handler.ServeWS(h, resolver, s, cfg.SendBuffer, cfg.MaxMessageSize, log))

	addr := ":" + cfg.Port
	log.Info("synkr listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
