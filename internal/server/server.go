package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"trenpajak/internal/api"
	"trenpajak/internal/config"
	"trenpajak/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	http   *http.Server
}

// NewServer 创建服务器并打开数据库
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: gin.New(),
		store:  st,
	}
	s.router.Use(gin.Logger(), gin.Recovery())
	s.router.MaxMultipartMemory = cfg.Data.MaxUploadMB << 20
	s.setupRoutes(cfg)
	return s, nil
}

// OpenStore 按配置打开存储（服务与命令行共用）
func OpenStore(cfg *config.AppConfig) (*store.Store, error) {
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	dsn := config.DatabaseDSN(cfg, dataDir)
	if cfg.Database.Driver == store.DriverPostgres {
		return store.Open(store.DriverPostgres, dsn)
	}
	return store.New(dsn)
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(cfg *config.AppConfig) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowMethods("GET", "POST", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	s.router.Use(cors.New(corsConfig))

	apiGroup := s.router.Group("/api")
	api.NewHandler(s.store, cfg).RegisterRoutes(apiGroup)

	if cfg.Server.DevMode {
		// 开发模式：代理到前端开发服务器
		s.router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint tidak ditemukan"})
				return
			}
			c.Redirect(http.StatusTemporaryRedirect, "http://localhost:5173"+c.Request.URL.Path)
		})
		return
	}

	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "trenpajak", "api": "/api/status"})
	})
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint tidak ditemukan"})
	})
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，阻塞直到关闭
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭并释放数据库
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
