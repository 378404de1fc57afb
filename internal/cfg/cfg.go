package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/jimlawless/whereami"
)

type Config struct {
	Minio   *MinIOCfg
	Http    *HTTPConfig
	Db      *PGDBCfg
	Redis   *RedisCfg
	Kafka   *KafkaCfg
	Crawler *CrawlerCfg
	Scope   *ScopeCfg
	Session *SessionCfg
	Shopify *ShopifyCfg
	Publish *PublishCfg
	Worker  *WorkerCfg
}

type KafkaCfg struct {
	Enabled           bool
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

type MinIOCfg struct {
	Enabled           bool
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет для снимков HTML страниц
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PGDBCfg struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int32
	MigrationsDir string
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

// CrawlerCfg — настройки загрузки страниц поставщиков.
type CrawlerCfg struct {
	FetchTimeout         time.Duration // таймаут одного запроса, ограничен [1s, 60s]
	RequestsPerSecond    float64       // лимит запросов на хост
	MaxRetries           int
	DiscoveryConcurrency int
	UserAgent            string
	SnapshotPages        bool // сохранять HTML страниц в MinIO
}

// ScopeCfg — разрешённые хосты для каждой целевой площадки поставщика.
type ScopeCfg struct {
	AllowedHosts map[string][]string
}

type SessionCfg struct {
	LoginServiceURL string
	TTL             time.Duration
	Timeout         time.Duration
}

type ShopifyCfg struct {
	ShopDomain        string
	AccessToken       string
	APIVersion        string
	RequestsPerSecond float64
	Timeout           time.Duration
}

type PublishCfg struct {
	BatchSize int
}

type WorkerCfg struct {
	Workers   int
	QueueSize int
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
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

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	crawler, err := loadCrawlerCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	scope, err := loadScopeCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	session, err := loadSessionCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	shopify, err := loadShopifyCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	publish, err := loadPublishCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	worker, err := loadWorkerCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Minio:   minio,
		Http:    http,
		Db:      db,
		Redis:   redis,
		Kafka:   kafka,
		Crawler: crawler,
		Scope:   scope,
		Session: session,
		Shopify: shopify,
		Publish: publish,
		Worker:  worker,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultTopic             = "catalog-import-audit"
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		// аудит остаётся в import_logs, доставка в Kafka отключена
		return &KafkaCfg{Enabled: false}, nil
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Enabled:           true,
		Brokers:           splitList(brokerStr, ","),
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL   = false
		defaultBucket   = "page-snapshots"
		defaultEndpoint = ""
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	endpoint := getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint)

	return &MinIOCfg{
		Enabled:           endpoint != "",
		MinioEndpoint:     endpoint,
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 120 * time.Second // синхронная публикация может занимать время
		defaultIdleTimeout  = 60 * time.Second
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
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
		Port:         getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost          = "localhost"
		defaultPort          = "5432"
		defaultSSLMode       = "disable"
		defaultMaxConns      = 10
		defaultMigrationsDir = "db/migrations"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	maxConns, err := parseIntEnv("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil {
		log.Errorf(err, "invalid POSTGRES_MAX_CONNS")
		return nil, err
	}

	return &PGDBCfg{
		Host:          getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:          getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:          user,
		Password:      password,
		DBName:        dbName,
		SSLMode:       getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MaxConns:      int32(maxConns),
		MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", defaultMigrationsDir),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
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

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
	}, nil
}

func loadCrawlerCfg(log logger.Logger) (*CrawlerCfg, error) {
	const (
		defaultFetchTimeout = 30 * time.Second
		minFetchTimeout     = time.Second
		maxFetchTimeout     = 60 * time.Second
		defaultRPS          = "2"
		defaultMaxRetries   = 2
		defaultConcurrency  = 4
		defaultUserAgent    = "catalog-importer/1.0"
	)

	timeout, err := parseDurationEnv("FETCH_TIMEOUT", defaultFetchTimeout)
	if err != nil {
		log.Errorf(err, "invalid FETCH_TIMEOUT")
		return nil, err
	}
	timeout = clampDuration(timeout, minFetchTimeout, maxFetchTimeout)

	rps, err := strconv.ParseFloat(getEnvOrDefault("FETCH_RPS", defaultRPS), 64)
	if err != nil || rps <= 0 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid FETCH_RPS")
		return nil, e.Wrap("FETCH_RPS", e.ErrIncorrectEnvVariable)
	}

	retries, err := parseIntEnv("FETCH_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return nil, e.Wrap("FETCH_MAX_RETRIES", err)
	}

	concurrency, err := parseIntEnv("DISCOVERY_CONCURRENCY", defaultConcurrency)
	if err != nil {
		return nil, e.Wrap("DISCOVERY_CONCURRENCY", err)
	}

	snapshot, err := strconv.ParseBool(getEnvOrDefault("SNAPSHOT_PAGES", "true"))
	if err != nil {
		return nil, e.Wrap("SNAPSHOT_PAGES", e.ErrIncorrectEnvVariable)
	}

	return &CrawlerCfg{
		FetchTimeout:         timeout,
		RequestsPerSecond:    rps,
		MaxRetries:           retries,
		DiscoveryConcurrency: max(concurrency, 1),
		UserAgent:            getEnvOrDefault("USER_AGENT", defaultUserAgent),
		SnapshotPages:        snapshot,
	}, nil
}

// loadScopeCfg разбирает SCOPE_ALLOWED_HOSTS вида "target=host1,host2;target2=host3".
func loadScopeCfg() (*ScopeCfg, error) {
	hosts, err := ParseAllowedHosts(getEnv("SCOPE_ALLOWED_HOSTS"))
	if err != nil {
		return nil, e.Wrap("SCOPE_ALLOWED_HOSTS", err)
	}

	return &ScopeCfg{AllowedHosts: hosts}, nil
}

// ParseAllowedHosts разбирает строку разрешённых хостов по целевым площадкам.
func ParseAllowedHosts(raw string) (map[string][]string, error) {
	result := make(map[string][]string)
	for _, entry := range splitList(raw, ";") {
		target, list, ok := strings.Cut(entry, "=")
		target = strings.TrimSpace(target)
		if !ok || target == "" {
			return nil, fmt.Errorf("malformed entry %q: %w", entry, e.ErrIncorrectEnvVariable)
		}

		for _, host := range splitList(list, ",") {
			result[target] = append(result[target], strings.ToLower(host))
		}
	}

	return result, nil
}

func loadSessionCfg(log logger.Logger) (*SessionCfg, error) {
	const (
		defaultTTL     = 30 * time.Minute
		defaultTimeout = 60 * time.Second // headless-логин медленный
	)

	ttl, err := parseDurationEnv("SESSION_TTL", defaultTTL)
	if err != nil {
		log.Errorf(err, "invalid SESSION_TTL")
		return nil, err
	}

	timeout, err := parseDurationEnv("LOGIN_SERVICE_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid LOGIN_SERVICE_TIMEOUT")
		return nil, err
	}

	return &SessionCfg{
		LoginServiceURL: getEnv("LOGIN_SERVICE_URL"),
		TTL:             ttl,
		Timeout:         timeout,
	}, nil
}

func loadShopifyCfg(log logger.Logger) (*ShopifyCfg, error) {
	const (
		defaultAPIVersion = "2024-07"
		defaultRPS        = "2"
		defaultTimeout    = 20 * time.Second
	)

	rps, err := strconv.ParseFloat(getEnvOrDefault("SHOPIFY_RPS", defaultRPS), 64)
	if err != nil || rps <= 0 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid SHOPIFY_RPS")
		return nil, e.Wrap("SHOPIFY_RPS", e.ErrIncorrectEnvVariable)
	}

	timeout, err := parseDurationEnv("SHOPIFY_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid SHOPIFY_TIMEOUT")
		return nil, err
	}

	return &ShopifyCfg{
		ShopDomain:        getEnv("SHOPIFY_SHOP_DOMAIN"),
		AccessToken:       getEnv("SHOPIFY_ACCESS_TOKEN"),
		APIVersion:        getEnvOrDefault("SHOPIFY_API_VERSION", defaultAPIVersion),
		RequestsPerSecond: rps,
		Timeout:           timeout,
	}, nil
}

func loadPublishCfg() (*PublishCfg, error) {
	const defaultBatchSize = 50

	batch, err := parseIntEnv("PUBLISH_BATCH_SIZE", defaultBatchSize)
	if err != nil || batch <= 0 {
		return nil, e.Wrap("PUBLISH_BATCH_SIZE", e.ErrIncorrectEnvVariable)
	}

	return &PublishCfg{BatchSize: batch}, nil
}

func loadWorkerCfg() (*WorkerCfg, error) {
	const (
		defaultWorkers   = 2
		defaultQueueSize = 32
	)

	workers, err := parseIntEnv("WORKER_COUNT", defaultWorkers)
	if err != nil || workers <= 0 {
		return nil, e.Wrap("WORKER_COUNT", e.ErrIncorrectEnvVariable)
	}

	size, err := parseIntEnv("WORKER_QUEUE_SIZE", defaultQueueSize)
	if err != nil || size <= 0 {
		return nil, e.Wrap("WORKER_QUEUE_SIZE", e.ErrIncorrectEnvVariable)
	}

	return &WorkerCfg{Workers: workers, QueueSize: size}, nil
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

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
