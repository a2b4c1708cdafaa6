//go:build integration

package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gearshare/service-booking/internal/application"
	"github.com/gearshare/service-booking/internal/clock"
	"github.com/gearshare/service-booking/internal/events"
	"github.com/gearshare/service-booking/internal/handler"
	"github.com/gearshare/service-booking/internal/repository"
	"github.com/gearshare/service-booking/pkg/database"
	"github.com/gearshare/service-booking/pkg/kafka"
	"github.com/gearshare/service-booking/pkg/middleware"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// bookingStack holds the wired-up service with its HTTP router.
type bookingStack struct {
	Router          *gin.Engine
	Bookings        *application.BookingService
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_booking sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	// Apply the versioned migrations, the same path production boots take.
	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/test_booking?sslmode=disable", pgHost, pgPort.Port())
	require.NoError(t, database.RunMigrations(dbURL, "migrations", zap.NewNop()))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, events.TopicBookingEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupBookingStack wires up the full service stack behind a gin router,
// mirroring the wiring in cmd/server.
func setupBookingStack(t *testing.T, db *gorm.DB, brokers []string) *bookingStack {
	t.Helper()
	logger := zap.NewNop()

	bookingRepo := repository.NewGormBookingRepository(db)
	itemRepo := repository.NewGormItemRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	producer := kafka.NewProducer(brokers, logger)
	clk := clock.System{}

	availability := application.NewAvailabilityAggregator(bookingRepo)
	bookingService := application.NewBookingService(bookingRepo, itemRepo, userRepo, clk, producer, logger)
	itemService := application.NewItemService(itemRepo, bookingRepo, userRepo, availability, clk, logger)
	userService := application.NewUserService(userRepo, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))

	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup)
	handler.NewItemHandler(itemService).RegisterRoutes(&router.RouterGroup)
	handler.NewUserHandler(userService).RegisterRoutes(&router.RouterGroup)

	return &bookingStack{
		Router:          router,
		Bookings:        bookingService,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// doJSON performs a request against the router with an optional JSON body and
// actor header, and decodes the JSON response into out when it is non-nil.
func doJSON(t *testing.T, router *gin.Engine, method, path string, actorID int64, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actorID > 0 {
		req.Header.Set(middleware.ActorHeader, strconv.FormatInt(actorID, 10))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
	}
	return rec
}

// createUser registers a user over HTTP and returns its DTO.
func createUser(t *testing.T, router *gin.Engine, name, email string) application.UserDTO {
	t.Helper()
	var dto application.UserDTO
	rec := doJSON(t, router, http.MethodPost, "/users", 0,
		application.CreateUserRequest{Name: name, Email: email}, &dto)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return dto
}

// createItem registers an available item over HTTP and returns its DTO.
func createItem(t *testing.T, router *gin.Engine, ownerID int64, name, description string) application.ItemDTO {
	t.Helper()
	available := true
	var dto application.ItemDTO
	rec := doJSON(t, router, http.MethodPost, "/items", ownerID,
		application.CreateItemRequest{Name: name, Description: description, Available: &available}, &dto)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return dto
}

// createBooking posts a booking request over HTTP and returns its DTO.
func createBooking(t *testing.T, router *gin.Engine, bookerID, itemID int64, start, end time.Time) application.BookingDTO {
	t.Helper()
	var dto application.BookingDTO
	rec := doJSON(t, router, http.MethodPost, "/bookings", bookerID,
		application.CreateBookingRequest{ItemID: itemID, Start: start, End: end}, &dto)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return dto
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%d", time.Now().UnixNano())
	consumer := kafka.NewConsumer(brokers, groupID, topic, zap.NewNop())
	defer func() { _ = consumer.Close() }()

	var found kafka.CloudEvent
	err := consumer.Consume(ctx, func(_ context.Context, msg kafkago.Message) error {
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err == nil && ce.Type == expectedType {
			found = ce
			cancel()
		}
		return nil
	})
	if found.Type != expectedType {
		t.Fatalf("timed out waiting for event type %q on topic %q: %v", expectedType, topic, err)
	}
	return found
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
