// Package testing provides test utilities and database setup for the short link store
package testing

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amirphl/Kusanagi/migrations"
	"github.com/amirphl/Kusanagi/models"
)

// Supported test database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// TestDBConfig holds configuration for test database connections
type TestDBConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// GetTestDBConfig loads test database configuration from environment variables
func GetTestDBConfig() *TestDBConfig {
	config := &TestDBConfig{
		Driver:   getEnv("TEST_DB_DRIVER", DriverSQLite),
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		SSLMode:  getEnv("TEST_DB_SSL_MODE", "disable"),
	}
	return config
}

func (c *TestDBConfig) adminDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.SSLMode)
}

func (c *TestDBConfig) url(dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, dbName, c.SSLMode)
}

// TestDB represents a test database instance
type TestDB struct {
	DB     *gorm.DB
	Name   string
	Driver string
	config *TestDBConfig
	// terminate stops the backing container, if any
	terminate func()
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), rand.Intn(10000))
}

// SetupSQLiteTestDB opens a private in-memory SQLite database with the schema in place
func SetupSQLiteTestDB() (*TestDB, error) {
	name := uniqueName("kusanagi_test")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite test database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// A single connection keeps the shared in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.ShortLink{}, &models.ShortLinkClick{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite test database: %w", err)
	}

	return &TestDB{DB: db, Name: name, Driver: DriverSQLite}, nil
}

// SetupTestDB creates a new test database for the configured driver.
// For postgres it creates a database with a unique name and runs the embedded migrations.
func SetupTestDB() (*TestDB, error) {
	config := GetTestDBConfig()
	if config.Driver != DriverPostgres {
		return SetupSQLiteTestDB()
	}

	dbName := uniqueName("kusanagi_test")

	adminDB, err := gorm.Open(postgres.Open(config.adminDSN()), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)).Error; err != nil {
		return nil, fmt.Errorf("failed to create test database %s: %w", dbName, err)
	}
	sqlDB, _ := adminDB.DB()
	sqlDB.Close()

	testDB, err := openPostgres(config.url(dbName))
	if err != nil {
		return nil, err
	}

	return &TestDB{
		DB:     testDB,
		Name:   dbName,
		Driver: DriverPostgres,
		config: config,
	}, nil
}

// SetupContainerTestDB starts a disposable PostgreSQL container and migrates it
func SetupContainerTestDB(ctx context.Context) (*TestDB, error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("kusanagi_test"),
		tcpostgres.WithUsername("kusanagi"),
		tcpostgres.WithPassword("kusanagi"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	terminate := func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("Warning: failed to terminate postgres container: %v", err)
		}
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, fmt.Errorf("failed to get container connection string: %w", err)
	}

	db, err := openPostgres(url)
	if err != nil {
		terminate()
		return nil, err
	}

	return &TestDB{
		DB:        db,
		Name:      "kusanagi_test",
		Driver:    DriverPostgres,
		terminate: terminate,
	}, nil
}

// StartRedisContainer starts a disposable Redis and returns its host:port and a stop function
func StartRedisContainer(ctx context.Context) (string, func(), error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return "", nil, fmt.Errorf("failed to start redis container: %w", err)
	}
	terminate := func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("Warning: failed to terminate redis container: %v", err)
		}
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		terminate()
		return "", nil, fmt.Errorf("failed to get redis endpoint: %w", err)
	}
	return endpoint, terminate, nil
}

func openPostgres(url string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(url), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get postgres handle: %w", err)
	}

	m, err := migrations.NewWithDB(sqlDB, zap.NewNop())
	if err != nil {
		return nil, err
	}
	if err := m.Up(); err != nil {
		return nil, fmt.Errorf("failed to run migrations on test database: %w", err)
	}
	return db, nil
}

// TeardownTestDB drops the test database and closes connections
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}

	sqlDB, err := tdb.DB.DB()
	if err == nil {
		sqlDB.Close()
	}

	if tdb.terminate != nil {
		tdb.terminate()
		return nil
	}
	if tdb.Driver != DriverPostgres || tdb.config == nil {
		return nil
	}

	adminDB, err := gorm.Open(postgres.Open(tdb.config.adminDSN()), gormConfig())
	if err != nil {
		log.Printf("Warning: failed to connect to PostgreSQL for cleanup: %v", err)
		return err
	}
	defer func() {
		sqlDB, _ := adminDB.DB()
		sqlDB.Close()
	}()

	// Force disconnect all connections to the test database
	err = adminDB.Exec(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = ? AND pid <> pg_backend_pid()",
		tdb.Name).Error
	if err != nil {
		log.Printf("Warning: failed to terminate connections to test database %s: %v", tdb.Name, err)
	}

	if err := adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", tdb.Name)).Error; err != nil {
		log.Printf("Warning: failed to drop test database %s: %v", tdb.Name, err)
		return err
	}

	return nil
}

// ClearAllTables removes all data from tables while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	// Order matters due to foreign key constraints
	tables := []string{
		"short_link_clicks",
		"short_links",
	}

	for _, table := range tables {
		stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)
		if tdb.Driver == DriverSQLite {
			stmt = fmt.Sprintf("DELETE FROM %s", table)
		}
		if err := tdb.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// ContainersEnabled reports whether docker backed integration tests were requested
func ContainersEnabled() bool {
	v := strings.ToLower(os.Getenv("TEST_CONTAINERS"))
	return v == "1" || v == "true"
}

// TestWithDB is a helper function that sets up a test database, runs the test function, and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
