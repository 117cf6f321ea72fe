package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"parking_reserve/internal/api"
	"parking_reserve/internal/api/handler"
	"parking_reserve/internal/api/middleware"
	"parking_reserve/internal/cache"
	"parking_reserve/internal/config"
	"parking_reserve/internal/iot"
	"parking_reserve/internal/repository/postgresql"
	"parking_reserve/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Configuration loaded.")

	// 2. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connection established.")

	if err := postgresql.Migrate(context.Background(), db); err != nil {
		log.Fatalf("Could not run migrations: %v", err)
	}

	// 3. Setup Redis (reservation list mirror)
	rdb := cache.New(cfg.RedisAddr)
	reservationCache := cache.NewReservationCache(rdb)

	// 4. Initialize AWS SDK Config and clients
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Could not load AWS SDK config: %v", err)
	}
	log.Println("AWS SDK config loaded for region:", cfg.AWSRegion)

	sqsClient := sqs.NewFromConfig(awsSDKCfg)
	iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
		if cfg.IoTMQTTEndpoint != "" {
			endpointWithSchema := cfg.IoTMQTTEndpoint
			if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
				endpointWithSchema = "https://" + endpointWithSchema
			}
			o.BaseEndpoint = aws.String(endpointWithSchema)
		}
	})

	// 5. Initialize Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	establishmentRepo := postgresql.NewPgEstablishmentRepository(db)
	reservationRepo := postgresql.NewPgReservationRepository(db)
	notificationRepo := postgresql.NewPgNotificationRepository(db)

	// init websocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()
	log.Println("WebSocket Manager started.")

	// 6. Initialize Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours)
	occupancyService := service.NewOccupancyService(establishmentRepo, webSocketManager)
	establishmentService := service.NewEstablishmentService(establishmentRepo, occupancyService)
	notificationService := service.NewNotificationService(notificationRepo, webSocketManager, cfg.NotificationRetention)
	indicatorPublisher := iot.NewIndicatorPublisher(iotDataPlaneClient, cfg)
	reservationService := service.NewReservationService(
		establishmentRepo, reservationRepo, occupancyService,
		reservationCache, notificationService, indicatorPublisher)

	// 7. Initialize Auth Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 8. Start occupancy feed consumers
	var wg sync.WaitGroup
	consumerCtx, cancelConsumers := context.WithCancel(context.Background())

	if cfg.SQSSensorQueueURL == "" {
		log.Println("WARNING: SQS_SENSOR_QUEUE_URL not configured. Sensor feed consumer will not run.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg, occupancyService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
			log.Println("SQS consumer stopped.")
		}()
	}

	if len(cfg.KafkaBrokers) == 0 {
		log.Println("WARNING: KAFKA_BROKERS not configured. Reservation-status feed consumer will not run.")
	} else {
		kafkaConsumer := iot.NewKafkaConsumer(cfg, occupancyService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			kafkaConsumer.Start(consumerCtx)
			log.Println("Kafka consumer stopped.")
		}()
	}

	// background job to clean up old notifications
	go startNotificationCleanupJob(consumerCtx, notificationService)

	// 9. Setup HTTP Router
	router := api.SetupRouter(authService, establishmentService, reservationService,
		notificationService, authMiddleware, webSocketManager)

	// 10. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe() error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelConsumers()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shut down: %v", err)
	}

	log.Println("Waiting for feed consumers to stop (up to 5 seconds)...")
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
		log.Println("Feed consumers stopped.")
	case <-time.After(5 * time.Second):
		log.Println("Feed consumers did not stop within the grace period.")
	}

	log.Println("Server stopped.")
}

func startNotificationCleanupJob(ctx context.Context, notificationService *service.NotificationService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := notificationService.CleanupOld(jobCtx)
			if err != nil {
				log.Printf("Error cleaning up old notifications: %v", err)
			} else if count > 0 {
				log.Printf("Cleaned up %d old notifications", count)
			}
			cancel()
		}
	}
}
