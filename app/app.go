package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/abcfe/abcfe-metadata/api/client"
	"github.com/abcfe/abcfe-metadata/api/rest"
	"github.com/abcfe/abcfe-metadata/common/logger"
	conf "github.com/abcfe/abcfe-metadata/config"
	"github.com/abcfe/abcfe-metadata/metadata"
	"github.com/abcfe/abcfe-metadata/storage"
	"github.com/abcfe/abcfe-metadata/wallet"
)

type App struct {
	stop     chan struct{}
	stopOnce sync.Once
	Conf     conf.Config
	Wallet   *wallet.WalletManager

	// store server side, nil until StartServer
	DB         *storage.DB
	restServer *rest.Server
}

// New loads config and logger. Nothing is opened until a Start call.
func New(configPath string) (*App, error) {
	cfg, err := conf.NewConfig(configPath)
	if err != nil {
		fmt.Println("Failed to initialized application: ", err)
		return nil, err
	}

	if err := logger.InitLogger(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return nil, err
	}

	return &App{
		stop:   make(chan struct{}),
		Conf:   *cfg,
		Wallet: wallet.InitWalletManager(cfg),
	}, nil
}

// NewMetadataService builds a client side metadata service against the configured store
func (p *App) NewMetadataService(seeds metadata.SeedProvider, opts ...metadata.Option) *metadata.Service {
	return metadata.NewService(seeds, p.newClient(), p.serviceOptions(opts)...)
}

// NewMetadataServiceWithPurposeKey is NewMetadataService for a recovered purpose key
func (p *App) NewMetadataServiceWithPurposeKey(xprv string, opts ...metadata.Option) (*metadata.Service, error) {
	return metadata.NewServiceWithPurposeKey(xprv, p.newClient(), p.serviceOptions(opts)...)
}

func (p *App) newClient() *client.Client {
	timeout := time.Duration(p.Conf.Metadata.RequestTimeoutSec) * time.Second
	return client.New(p.Conf.Metadata.Endpoint, timeout)
}

func (p *App) serviceOptions(opts []metadata.Option) []metadata.Option {
	delay := time.Duration(p.Conf.Metadata.RetryDelayMs) * time.Millisecond
	return append([]metadata.Option{metadata.WithRetryDelay(delay)}, opts...)
}

// StartServer opens the store db and starts the REST/WebSocket server
func (p *App) StartServer() error {
	db, err := storage.InitDB(&p.Conf)
	if err != nil {
		logger.Error("Failed to load db: ", err)
		return err
	}
	p.DB = db

	p.restServer = rest.NewServer(&p.Conf, p.DB)
	if err := p.restServer.Start(); err != nil {
		return fmt.Errorf("failed to start REST API server: %w", err)
	}

	logger.Info("Metadata store started")
	return nil
}

// Cleanup 애플리케이션 정리
func (p *App) Cleanup() {
	timeout := time.Duration(p.Conf.Server.ShutdownTimeoutS) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// REST API 서버 종료
	if p.restServer != nil {
		if err := p.restServer.Stop(ctx); err != nil {
			logger.Error("Error stopping REST API server:", err)
		}
	}

	// DB 연결 닫기
	if p.DB != nil {
		if err := p.DB.Close(); err != nil {
			logger.Error("Error closing DB connection:", err)
		}
	}

	if p.Wallet != nil {
		p.Wallet.Lock()
	}

	logger.Info("All resources cleaned up")
	logger.Sync()
}

func (p *App) Wait() {
	<-p.stop // 채널에서 값 읽으려고 시도
}

func (p *App) Terminate() {
	p.stopOnce.Do(func() {
		p.Cleanup() // 자원 정리 후 종료
		close(p.stop)
	})
}

func (p *App) SigHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM) // OS 시그널을 채널로 전달
	go func() {
		sig := <-sigCh
		logger.Info("Arrived terminate signal: ", sig)
		p.Terminate()
	}()
}
