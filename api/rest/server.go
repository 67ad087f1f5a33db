package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/abcfe/abcfe-metadata/api"
	"github.com/abcfe/abcfe-metadata/common/logger"
	"github.com/abcfe/abcfe-metadata/config"
	"github.com/abcfe/abcfe-metadata/storage"
)

// Server REST API 서버 구조체
type Server struct {
	port       int
	httpServer *http.Server
	db         *storage.DB
	wsHub      *api.WSHub
	limiter    *RateLimiter
	maxBody    int64
	handler    http.Handler
}

// NewServer 메타데이터 저장소 서버 인스턴스 생성
func NewServer(cfg *config.Config, db *storage.DB) *Server {
	s := &Server{
		port:    cfg.Server.RestPort,
		db:      db,
		wsHub:   api.NewWSHub(),
		maxBody: int64(cfg.Server.MaxPayloadBytes),
		limiter: NewRateLimiter(&RateLimitConfig{
			MaxRequestsPerSecond: cfg.Server.ReadsPerSecond + cfg.Server.WritesPerSecond,
			BurstSize:            cfg.Server.BurstSize,
			BanDuration:          time.Duration(cfg.Server.BanDurationSec) * time.Second,
			MaxReadsPerSecond:    cfg.Server.ReadsPerSecond,
			MaxWritesPerSecond:   cfg.Server.WritesPerSecond,
		}),
	}
	s.handler = setupRouter(s.db, s.wsHub, s.limiter, s.maxBody)
	return s
}

// Handler returns the routed handler without starting a listener
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start API 서버 시작
func (s *Server) Start() error {
	// WebSocket Hub 시작
	go s.wsHub.Run()

	addr := fmt.Sprintf(":%d", s.port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Metadata store starting on port ", s.port)
	logger.Info("WebSocket available at ws://localhost:", s.port, "/ws")
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metadata store server error:", err)
		}
	}()

	return nil
}

// Stop API 서버 종료
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down metadata store...")
	s.limiter.Stop()
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GetWSHub WebSocket Hub 반환
func (s *Server) GetWSHub() *api.WSHub {
	return s.wsHub
}
