package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/veloxschool/sims-api/api/swagger"
	"github.com/veloxschool/sims-api/internal/datatable"
	"github.com/veloxschool/sims-api/internal/handler"
	"github.com/veloxschool/sims-api/internal/middleware"
	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/repository"
	"github.com/veloxschool/sims-api/internal/service"
	"github.com/veloxschool/sims-api/pkg/cache"
	"github.com/veloxschool/sims-api/pkg/config"
	"github.com/veloxschool/sims-api/pkg/database"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/export"
	"github.com/veloxschool/sims-api/pkg/jobs"
	"github.com/veloxschool/sims-api/pkg/logger"
	corsmiddleware "github.com/veloxschool/sims-api/pkg/middleware/cors"
	reqidmiddleware "github.com/veloxschool/sims-api/pkg/middleware/requestid"
	"github.com/veloxschool/sims-api/pkg/storage"
)

// @title SIMS API
// @version 1.0.0
// @description Multi-tenant school management backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	lookupRepo := repository.NewLookupRepository(db)
	reportRepo := repository.NewReportRepository(db)
	exportRepo := repository.NewExportRepository(db)
	subjectMappingRepo := repository.NewSubjectMappingRepository(db)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr, cacheSvc)
	lookupSvc := service.NewLookupService(lookupRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	reportSvc := service.NewReportService(reportRepo, logr)
	dashboardSvc := service.NewDashboardService(reportRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	photoStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to init upload storage", zap.Error(err))
	}

	idCardValidity := 365 * 24 * time.Hour
	if cfg.Documents.IDCardValidity != "" {
		if d, err := time.ParseDuration(cfg.Documents.IDCardValidity); err == nil {
			idCardValidity = d
		}
	}
	documentSvc := service.NewDocumentService(
		studentRepo,
		tenantRepo,
		export.NewIDCardRenderer(),
		export.NewCertificateRenderer(),
		logr,
		service.DocumentConfig{
			PhotoDir:       photoStore.BaseDir(),
			IDCardValidity: idCardValidity,
		},
	)

	// Master entity stacks. Each is the same generic pipeline over a different
	// table descriptor.
	batchSvc := service.NewMasterService(service.MasterServiceParams[models.Batch, *models.Batch]{
		Repo: repository.NewBatchRepository(db), Entity: "batch",
		Validator: validate, Logger: logr, Cache: cacheSvc, Metrics: metricsSvc,
	})
	feeHeadSvc := service.NewMasterService(service.MasterServiceParams[models.FeeHead, *models.FeeHead]{
		Repo: repository.NewFeeHeadRepository(db), Entity: "fee-head",
		Validator: validate, Logger: logr, Cache: cacheSvc, Metrics: metricsSvc,
	})
	employeeTypeSvc := service.NewMasterService(service.MasterServiceParams[models.EmployeeType, *models.EmployeeType]{
		Repo: repository.NewEmployeeTypeRepository(db), Entity: "employee-type",
		Validator: validate, Logger: logr, Cache: cacheSvc, Metrics: metricsSvc,
	})
	shiftSvc := service.NewMasterService(service.MasterServiceParams[models.Shift, *models.Shift]{
		Repo: repository.NewShiftRepository(db), Entity: "shift",
		Validator: validate, Logger: logr, Cache: cacheSvc, Metrics: metricsSvc,
	})
	vehicleSvc := service.NewMasterService(service.MasterServiceParams[models.TransportVehicle, *models.TransportVehicle]{
		Repo: repository.NewVehicleRepository(db), Entity: "vehicle",
		Validator: validate, Logger: logr, Cache: cacheSvc, Metrics: metricsSvc,
	})
	noticeSvc := service.NewMasterService(service.MasterServiceParams[models.Notice, *models.Notice]{
		Repo: repository.NewNoticeRepository(db), Entity: "notice",
		Validator: validate, Logger: logr, Cache: cacheSvc, Metrics: metricsSvc,
	})
	customerSvc := service.NewMasterService(service.MasterServiceParams[models.Customer, *models.Customer]{
		Repo: repository.NewCustomerRepository(db), Entity: "customer",
		Validator: validate, Logger: logr, Cache: cacheSvc, Metrics: metricsSvc,
	})
	subjectMappingSvc := service.NewMasterService(service.MasterServiceParams[models.SubjectMapping, *models.SubjectMapping]{
		Repo: subjectMappingRepo, Entity: "subject-mapping",
		Validator: validate, Logger: logr, Cache: cacheSvc, Metrics: metricsSvc,
		BeforeSave: func(ctx context.Context, scope models.Scope, rec *models.SubjectMapping, isCreate bool) error {
			if !isCreate {
				return nil
			}
			exists, err := subjectMappingRepo.ExistsMapping(ctx, scope, rec.ClassID, rec.SectionID, rec.SubjectID)
			if err != nil {
				return err
			}
			if exists {
				return appErrors.Clone(appErrors.ErrDuplicate, "subject is already mapped to this class and section")
			}
			return nil
		},
	})

	// Exports run in the background when enabled.
	var exportSvc *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		exportSvc = service.NewExportService(service.ExportServiceParams{
			Store:    exportRepo,
			Reports:  reportRepo,
			Students: studentRepo,
			Storage:  exportStore,
			Signer:   storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
			Logger:   logr,
			Config: service.ExportConfig{
				APIPrefix: cfg.APIPrefix,
				ResultTTL: cfg.Exports.SignedURLTTL,
			},
			CSV: export.NewCSVExporter(),
			PDF: export.NewPDFExporter(),
		})
		exportQueue = jobs.NewQueue("exports", exportSvc.Process, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.SetQueue(exportQueue)
	}

	// HTTP surface.
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	handler.NewMetricsHandler(metricsSvc).Register(&r.RouterGroup)

	api := r.Group(cfg.APIPrefix)

	authHandler := handler.NewAuthHandler(authSvc)
	authHandler.RegisterPublic(api.Group("/auth"))

	exportHandler := handler.NewExportHandler(exportSvc)
	if exportSvc != nil {
		// Token-gated, no JWT: the signed token is the credential.
		exportHandler.RegisterDownload(api.Group("/exports"))
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	authHandler.RegisterProtected(secured.Group("/auth"))

	registerMaster(secured, "/batches", batchSvc, userRepo)
	registerMaster(secured, "/fee-heads", feeHeadSvc, userRepo)
	registerMaster(secured, "/employee-types", employeeTypeSvc, userRepo)
	registerMaster(secured, "/shifts", shiftSvc, userRepo)
	registerMaster(secured, "/vehicles", vehicleSvc, userRepo)
	registerMaster(secured, "/notices", noticeSvc, userRepo)
	registerMaster(secured, "/customers", customerSvc, userRepo)
	subjectMappings := secured.Group("/subject-mappings")
	subjectMappings.Use(middleware.Audit(userRepo, "WRITE", subjectMappingSvc.Entity()))
	handler.NewSubjectMappingHandler(service.NewSubjectMappingService(subjectMappingSvc, subjectMappingRepo)).Register(subjectMappings)

	students := secured.Group("/students")
	students.Use(middleware.Audit(userRepo, "WRITE", "student"))
	handler.NewStudentHandler(studentSvc, photoStore, cfg.Uploads).Register(students)

	handler.NewLookupHandler(lookupSvc).Register(secured.Group("/lookups"))

	reports := secured.Group("/reports")
	reports.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleAccountant))
	handler.NewReportHandler(reportSvc).Register(reports)

	if cfg.Dashboard.Enabled {
		handler.NewDashboardHandler(dashboardSvc).Register(secured.Group("/dashboard"))
	}

	handler.NewDocumentHandler(documentSvc).Register(secured.Group("/documents"))

	if exportSvc != nil {
		exports := secured.Group("/exports")
		exports.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleAccountant))
		exportHandler.Register(exports)
	}

	// Background workers.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if exportQueue != nil {
		exportQueue.Start(ctx)
		defer exportQueue.Stop()

		go func() {
			ticker := time.NewTicker(cfg.Exports.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if removed, err := exportSvc.Cleanup(ctx); err != nil {
						logr.Warn("export cleanup failed", zap.Error(err))
					} else if len(removed) > 0 {
						logr.Info("export cleanup removed files", zap.Int("count", len(removed)))
					}
				}
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// registerMaster mounts the shared grid/CRUD routes for one master entity with
// write auditing.
func registerMaster[T any, PT datatable.Recordable[T]](parent *gin.RouterGroup, path string, svc *service.MasterService[T, PT], userRepo *repository.UserRepository) {
	group := parent.Group(path)
	group.Use(middleware.Audit(userRepo, "WRITE", svc.Entity()))
	handler.NewMasterHandler(svc).Register(group)
}
