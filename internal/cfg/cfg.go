package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	ImageStorageFS    = "fs"
	ImageStorageMinio = "minio"
)

type Config struct {
	Environment string
	Minio       *MinIOCfg
	Images      *ImagesCfg
	Http        *HTTPConfig
	Grpc        *GRPCConfig
	Db          *PGDBCfg
	Redis       *RedisCfg
	Kafka       *KafkaCfg
	Auth        *AuthCfg
	Cors        *CorsCfg
	Log         *LogCfg
	Jobs        *JobsCfg
	Stats       *StatsCfg
}

// IsProduction сообщает, запущено ли приложение в боевом окружении.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

type KafkaCfg struct {
	Enabled           bool
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	OutboxBatchSize   int
	OutboxStaleAfter  time.Duration
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Название конкретного бакета в Minio
	MinioRootUser     string // Имя пользователя для доступа к Minio
	MinioRootPassword string // Пароль для доступа к Minio
	MinioUseSSL       bool
}

// ImagesCfg описывает хранилище фотографий товаров.
type ImagesCfg struct {
	Storage           string   // fs или minio
	UploadDir         string   // корень для fs-хранилища
	PublicPrefix      string   // префикс URL, по которому изображения отдаются клиенту
	AllowedExtensions []string // разрешённые расширения без точки, в нижнем регистре
	MaxSize           int64    // максимальный размер одного файла в байтах
	CleanupTimeout    time.Duration
	OrphanAge         time.Duration // возраст, после которого не привязанный к товару файл удаляется
}

type HTTPConfig struct {
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type PGDBCfg struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type RedisCfg struct {
	Enabled       bool
	Addr          string
	Password      string
	User          string
	DB            int
	MaxRetries    int
	DialTimeout   time.Duration
	Timeout       time.Duration
	ProductTTL    time.Duration
	CategoriesTTL time.Duration
}

type AuthCfg struct {
	JWTSecret     string
	AccessTTL     time.Duration
	AdminUsername string
	AdminPassword string
	BcryptCost    int
}

type CorsCfg struct {
	AllowedOrigins []string
}

type LogCfg struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type JobsCfg struct {
	ImageSweepSchedule     string
	LowStockReportSchedule string
	HealthProbeSchedule    string
	OutboxSchedule         string
}

type StatsCfg struct {
	ExpiryWarningDays int
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
// Переменные из файла .env подхватываются, если файл существует.
func Load(log logger.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to read .env: %v", err)
	}

	env := getEnvOrDefault("ENVIRONMENT", EnvDevelopment)

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	images, err := loadImagesCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if images.Storage == ImageStorageMinio && minio.BucketName == "" {
		return nil, fmt.Errorf("BUCKET_NAME is required when IMAGE_STORAGE=minio")
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	auth, err := loadAuthCfg(log, env)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	logCfg, err := loadLogCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	stats, err := loadStatsCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Environment: env,
		Minio:       minio,
		Images:      images,
		Http:        http,
		Grpc:        loadGRPCConfig(),
		Db:          db,
		Redis:       redis,
		Kafka:       kafka,
		Auth:        auth,
		Cors:        loadCorsCfg(),
		Log:         logCfg,
		Jobs:        loadJobsCfg(),
		Stats:       stats,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultTopic             = "inventory.products"
		defaultBatchSize         = 10
		defaultStaleAfter        = 5 * time.Minute
	)

	// Без брокеров события об изменениях товаров не публикуются
	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return &KafkaCfg{Enabled: false}, nil
	}
	brokers := splitList(brokerStr)

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	batchSize, err := parseIntEnv("OUTBOX_BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return nil, e.Wrap("OUTBOX_BATCH_SIZE", err)
	}

	staleAfter, err := parseDurationEnv("OUTBOX_STALE_AFTER", defaultStaleAfter)
	if err != nil {
		return nil, e.Wrap("OUTBOX_STALE_AFTER", err)
	}

	return &KafkaCfg{
		Enabled:           true,
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		OutboxBatchSize:   batchSize,
		OutboxStaleAfter:  staleAfter,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL   = false
		defaultEndpoint = "minio:9000"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:        getEnv("BUCKET_NAME"),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadImagesCfg(log logger.Logger) (*ImagesCfg, error) {
	const (
		defaultStorage        = ImageStorageFS
		defaultUploadDir      = "uploads"
		defaultPublicPrefix   = "/uploads"
		defaultExtensions     = "png,jpg,jpeg,gif,webp,bmp"
		defaultMaxSize        = 16 << 20
		defaultCleanupTimeout = 30 * time.Second
		defaultOrphanAge      = time.Hour
	)

	storage := strings.ToLower(getEnvOrDefault("IMAGE_STORAGE", defaultStorage))
	if storage != ImageStorageFS && storage != ImageStorageMinio {
		err := fmt.Errorf("IMAGE_STORAGE must be %q or %q, got %q", ImageStorageFS, ImageStorageMinio, storage)
		log.Errorf(err, "invalid IMAGE_STORAGE")
		return nil, err
	}

	maxSize, err := parseIntEnv("MAX_UPLOAD_SIZE", defaultMaxSize)
	if err != nil {
		log.Errorf(err, "invalid MAX_UPLOAD_SIZE")
		return nil, err
	}

	cleanupTimeout, err := parseDurationEnv("IMAGE_CLEANUP_TIMEOUT", defaultCleanupTimeout)
	if err != nil {
		log.Errorf(err, "invalid IMAGE_CLEANUP_TIMEOUT")
		return nil, err
	}

	orphanAge, err := parseDurationEnv("IMAGE_ORPHAN_AGE", defaultOrphanAge)
	if err != nil {
		log.Errorf(err, "invalid IMAGE_ORPHAN_AGE")
		return nil, err
	}

	exts := splitList(strings.ToLower(getEnvOrDefault("ALLOWED_EXTENSIONS", defaultExtensions)))
	for i, ext := range exts {
		exts[i] = strings.TrimPrefix(ext, ".")
	}

	return &ImagesCfg{
		Storage:           storage,
		UploadDir:         getEnvOrDefault("UPLOAD_FOLDER", defaultUploadDir),
		PublicPrefix:      strings.TrimRight(getEnvOrDefault("UPLOAD_PUBLIC_PREFIX", defaultPublicPrefix), "/"),
		AllowedExtensions: exts,
		MaxSize:           int64(maxSize),
		CleanupTimeout:    cleanupTimeout,
		OrphanAge:         orphanAge,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort              = "8080"
		defaultReadTimeout       = 15 * time.Second
		defaultReadHeaderTimeout = 5 * time.Second
		defaultWriteTimeout      = 30 * time.Second
		defaultIdleTimeout       = 60 * time.Second
	)

	// PORT выставляют PaaS-платформы, HTTP_PORT — явная настройка
	port := getEnvOrDefault("HTTP_PORT", getEnvOrDefault("PORT", defaultPort))

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	readHeaderTimeout, err := parseDurationEnv("HTTP_READ_HEADER_TIMEOUT", defaultReadHeaderTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_HEADER_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:              port,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost            = "localhost"
		defaultPort            = "5432"
		defaultSSLMode         = "disable"
		defaultMaxConns        = 10
		defaultMaxConnLifetime = 5 * time.Minute
		defaultMigrationsPath  = "db/migrations"
	)

	maxConns, err := parseIntEnv("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil {
		log.Errorf(err, "invalid POSTGRES_MAX_CONNS")
		return nil, err
	}

	maxConnLifetime, err := parseDurationEnv("POSTGRES_CONN_LIFETIME", defaultMaxConnLifetime)
	if err != nil {
		log.Errorf(err, "invalid POSTGRES_CONN_LIFETIME")
		return nil, err
	}

	cfg := &PGDBCfg{
		URL:             getEnv("DATABASE_URL"),
		Host:            getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:            getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:            getEnv("POSTGRES_USER"),
		Password:        getEnv("POSTGRES_PASSWORD"),
		DBName:          getEnv("POSTGRES_DB"),
		SSLMode:         getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MaxConns:        int32(maxConns),
		MaxConnLifetime: maxConnLifetime,
		MigrationsPath:  getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}

	// DATABASE_URL заменяет отдельные параметры подключения
	if cfg.URL != "" {
		return cfg, nil
	}

	for key, value := range map[string]string{
		"POSTGRES_USER":     cfg.User,
		"POSTGRES_PASSWORD": cfg.Password,
		"POSTGRES_DB":       cfg.DBName,
	} {
		if value == "" {
			err := fmt.Errorf("%s is required", key)
			log.Errorf(err, "missing %s", key)
			return nil, err
		}
	}

	return cfg, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB            = 0
		defaultMaxRetries    = 3
		defaultDialTimeout   = 5 * time.Second
		defaultReadTimeout   = 3 * time.Second
		defaultWriteTimeout  = 3 * time.Second
		defaultProductTTL    = 3 * time.Minute
		defaultCategoriesTTL = 10 * time.Minute
	)

	// Кэш необязателен: без REDIS_ADDR сервис читает напрямую из PostgreSQL
	addr := getEnv("REDIS_ADDR")
	if addr == "" {
		return &RedisCfg{Enabled: false}, nil
	}

	dbStr := getEnvOrDefault("REDIS_DB_ID", strconv.Itoa(defaultDB))
	db, err := strconv.Atoi(dbStr)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	productTTL, err := parseDurationEnv("PRODUCT_TTL", defaultProductTTL)
	if err != nil {
		log.Errorf(err, "invalid PRODUCT_TTL")
		return nil, err
	}

	categoriesTTL, err := parseDurationEnv("CATEGORIES_TTL", defaultCategoriesTTL)
	if err != nil {
		log.Errorf(err, "invalid CATEGORIES_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Enabled:       true,
		Addr:          addr,
		Password:      getEnv("REDIS_PASSWORD"),
		User:          getEnv("REDIS_USER"),
		DB:            db,
		MaxRetries:    maxRetries,
		DialTimeout:   dialTimeout,
		Timeout:       timeout,
		ProductTTL:    productTTL,
		CategoriesTTL: categoriesTTL,
	}, nil
}

func loadAuthCfg(log logger.Logger, env string) (*AuthCfg, error) {
	const (
		defaultAccessTTL     = 24 * time.Hour
		defaultAdminUsername = "admin"
		defaultBcryptCost    = 10
		devSecret            = "dev-secret-change-me"
		devAdminPassword     = "admin123"
	)

	secret := getEnv("JWT_SECRET_KEY")
	adminPassword := getEnv("ADMIN_PASSWORD")

	if env == EnvProduction {
		if secret == "" {
			err := fmt.Errorf("JWT_SECRET_KEY is required in production")
			log.Errorf(err, "missing JWT_SECRET_KEY")
			return nil, err
		}
		if adminPassword == "" {
			err := fmt.Errorf("ADMIN_PASSWORD is required in production")
			log.Errorf(err, "missing ADMIN_PASSWORD")
			return nil, err
		}
	}
	if secret == "" {
		log.Warnf("JWT_SECRET_KEY is not set, using development secret")
		secret = devSecret
	}
	if adminPassword == "" {
		adminPassword = devAdminPassword
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", defaultAccessTTL)
	if err != nil {
		log.Errorf(err, "invalid JWT_ACCESS_TTL")
		return nil, err
	}

	bcryptCost, err := parseIntEnv("BCRYPT_COST", defaultBcryptCost)
	if err != nil {
		log.Errorf(err, "invalid BCRYPT_COST")
		return nil, err
	}

	return &AuthCfg{
		JWTSecret:     secret,
		AccessTTL:     accessTTL,
		AdminUsername: getEnvOrDefault("ADMIN_USERNAME", defaultAdminUsername),
		AdminPassword: adminPassword,
		BcryptCost:    bcryptCost,
	}, nil
}

func loadCorsCfg() *CorsCfg {
	const defaultOrigins = "http://localhost:5173,http://localhost:3000,http://localhost:4173"

	origins := splitList(defaultOrigins)
	if frontend := getEnv("FRONTEND_URL"); frontend != "" {
		origins = append(origins, splitList(frontend)...)
	}

	return &CorsCfg{AllowedOrigins: origins}
}

func loadLogCfg() (*LogCfg, error) {
	const (
		defaultMaxSizeMB  = 64
		defaultMaxBackups = 7
		defaultMaxAgeDays = 7
	)

	maxSize, err := parseIntEnv("LOG_MAX_SIZE_MB", defaultMaxSizeMB)
	if err != nil {
		return nil, e.Wrap("LOG_MAX_SIZE_MB", err)
	}

	maxBackups, err := parseIntEnv("LOG_MAX_BACKUPS", defaultMaxBackups)
	if err != nil {
		return nil, e.Wrap("LOG_MAX_BACKUPS", err)
	}

	maxAge, err := parseIntEnv("LOG_MAX_AGE_DAYS", defaultMaxAgeDays)
	if err != nil {
		return nil, e.Wrap("LOG_MAX_AGE_DAYS", err)
	}

	return &LogCfg{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		File:       getEnv("LOG_FILE"),
		MaxSizeMB:  maxSize,
		MaxBackups: maxBackups,
		MaxAgeDays: maxAge,
	}, nil
}

func loadJobsCfg() *JobsCfg {
	return &JobsCfg{
		ImageSweepSchedule:     getEnvOrDefault("IMAGE_SWEEP_SCHEDULE", "@hourly"),
		LowStockReportSchedule: getEnvOrDefault("LOW_STOCK_REPORT_SCHEDULE", "@daily"),
		HealthProbeSchedule:    getEnvOrDefault("HEALTH_PROBE_SCHEDULE", "@every 30s"),
		OutboxSchedule:         getEnvOrDefault("OUTBOX_SCHEDULE", "@every 1m"),
	}
}

func loadStatsCfg() (*StatsCfg, error) {
	const defaultExpiryWarningDays = 7

	days, err := parseIntEnv("EXPIRY_WARNING_DAYS", defaultExpiryWarningDays)
	if err != nil {
		return nil, e.Wrap("EXPIRY_WARNING_DAYS", err)
	}

	return &StatsCfg{ExpiryWarningDays: days}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

// splitList разбивает список через запятую, отбрасывая пустые элементы.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}

	return res
}
