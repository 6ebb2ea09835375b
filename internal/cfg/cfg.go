package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
)

const (
	CatalogSourceFile     = "file"
	CatalogSourcePostgres = "postgres"

	IndexBackendFlat   = "flat"
	IndexBackendQdrant = "qdrant"

	EncoderTransportGRPC = "grpc"
	EncoderTransportHTTP = "http"
)

type Config struct {
	Http      *HTTPConfig
	Grpc      *GRPCConfig
	Artifacts *ArtifactsCfg
	Encoder   *EncoderCfg
	Fetch     *FetchCfg
	Search    *SearchCfg
	Qdrant    *QdrantCfg
	Minio     *MinIOCfg
	Db        *PGDBCfg
	Redis     *RedisCfg
	Kafka     *KafkaCfg
	Tracing   *TracingCfg
}

type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	HeaderTimeout  time.Duration
	MaxHeaderBytes int
	MaxUploadBytes int64 // лимит на размер загружаемого изображения
	SwaggerURL     string
}

// GRPCConfig — внутренний gRPC API для других сервисов. Пустой порт отключает сервер.
type GRPCConfig struct {
	Port        string
	NetworkMode string
}

// ArtifactsCfg описывает, откуда загружаются маппинг каталога и векторный индекс.
type ArtifactsCfg struct {
	CatalogSource     string // file | postgres
	MappingPath       string
	IndexBackend      string // flat | qdrant
	IndexPath         string
	Bucket            string // если задан, файлы сначала скачиваются из MinIO
	MappingObjectKey  string
	IndexObjectKey    string
	WatchEnabled      bool // повторять загрузку в фоне, пока сервис в состоянии degraded
	WatchBaseInterval time.Duration
	WatchMaxInterval  time.Duration
}

type EncoderCfg struct {
	Transport  string // grpc | http
	Addr       string // host:port для gRPC
	URL        string // базовый URL для HTTP
	Device     domain.Device
	Timeout    time.Duration
	MaxRetries int // число попыток на один запрос, 1 означает без повторов
}

// HostRewrite подменяет host[:port] в URL изображения перед скачиванием.
// Нужен, когда URL, валидный снаружи окружения, должен резолвиться внутри него.
type HostRewrite struct {
	From string
	To   string
}

type FetchCfg struct {
	Timeout      time.Duration
	MaxBytes     int64
	HostRewrites []HostRewrite
	RateLimit    float64 // запросов в секунду, 0 отключает ограничение
	RateBurst    int
}

// SearchCfg — значения k по умолчанию для каждой формы ответа.
type SearchCfg struct {
	FullTopK    int
	ResultsTopK int
	IDsTopK     int
	MaxTopK     int
}

type QdrantCfg struct {
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	MinioRootUser     string // Имя пользователя для доступа к Minio
	MinioRootPassword string // Пароль для доступа к Minio
	MinioUseSSL       bool
}

type PGDBCfg struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type RedisCfg struct {
	Addr        string // пустой адрес отключает кэш
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	ResultTTL   time.Duration
}

type KafkaCfg struct {
	Brokers           []string // пустой список отключает публикацию событий
	Topic             string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	BufferSize        int // ёмкость очереди событий в памяти
	BatchSize         int
	FlushInterval     time.Duration
}

type TracingCfg struct {
	OTLPEndpoint   string // пустой endpoint отключает экспорт
	ServiceName    string
	ServiceVersion string
	SampleRate     float64
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
// Перед чтением окружения подхватывается .env (путь можно переопределить через ENV_FILE).
func Load(log logger.Logger) (*Config, error) {
	if err := loadDotEnv(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	grpc := loadGRPCConfig()

	artifacts, err := loadArtifactsCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	encoder, err := loadEncoderCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	fetch, err := loadFetchCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	search, err := loadSearchCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log, artifacts.IndexBackend == IndexBackendQdrant)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	db, err := loadPGDBCfg(log, artifacts.CatalogSource == CatalogSourcePostgres)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	tracing, err := loadTracingCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Http:      http,
		Grpc:      grpc,
		Artifacts: artifacts,
		Encoder:   encoder,
		Fetch:     fetch,
		Search:    search,
		Qdrant:    qdrant,
		Minio:     minio,
		Db:        db,
		Redis:     redis,
		Kafka:     kafka,
		Tracing:   tracing,
	}, nil
}

func loadDotEnv(log logger.Logger) error {
	path := getEnvOrDefault("ENV_FILE", ".env")

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		log.Errorf(err, "failed to read env file %s", path)
		return err
	}

	log.Infof("environment loaded from %s", path)
	return nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort           = "5000"
		defaultReadTimeout    = 15 * time.Second
		defaultWriteTimeout   = 60 * time.Second
		defaultIdleTimeout    = 60 * time.Second
		defaultHeaderTimeout  = 5 * time.Second
		defaultMaxHeaderBytes = 1 << 20
		defaultMaxUploadBytes = 20 << 20
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

	headerTimeout, err := parseDurationEnv("HTTP_READ_HEADER_TIMEOUT", defaultHeaderTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_HEADER_TIMEOUT")
		return nil, err
	}

	maxHeaderBytes, err := parseIntEnv("HTTP_MAX_HEADER_BYTES", defaultMaxHeaderBytes)
	if err != nil {
		log.Errorf(err, "invalid HTTP_MAX_HEADER_BYTES")
		return nil, err
	}

	maxUpload, err := parseInt64Env("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
	if err != nil {
		log.Errorf(err, "invalid MAX_UPLOAD_BYTES")
		return nil, err
	}

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	return &HTTPConfig{
		Port:           port,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		HeaderTimeout:  headerTimeout,
		MaxHeaderBytes: maxHeaderBytes,
		MaxUploadBytes: maxUpload,
		SwaggerURL:     getEnvOrDefault("SWAGGER_DOC_URL", "/swagger/doc.json"),
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const defaultNetworkMode = "tcp"

	return &GRPCConfig{
		Port:        getEnv("GRPC_PORT"),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadArtifactsCfg(log logger.Logger) (*ArtifactsCfg, error) {
	const (
		defaultMappingPath  = "mapping_data.json"
		defaultIndexPath    = "vector_db.index"
		defaultBaseInterval = 5 * time.Second
		defaultMaxInterval  = 2 * time.Minute
	)

	catalogSource := strings.ToLower(getEnvOrDefault("CATALOG_SOURCE", CatalogSourceFile))
	if catalogSource != CatalogSourceFile && catalogSource != CatalogSourcePostgres {
		err := e.Wrap("CATALOG_SOURCE="+catalogSource, e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid CATALOG_SOURCE")
		return nil, err
	}

	indexBackend := strings.ToLower(getEnvOrDefault("INDEX_BACKEND", IndexBackendFlat))
	if indexBackend != IndexBackendFlat && indexBackend != IndexBackendQdrant {
		err := e.Wrap("INDEX_BACKEND="+indexBackend, e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid INDEX_BACKEND")
		return nil, err
	}

	watch, err := strconv.ParseBool(getEnvOrDefault("ARTIFACTS_WATCH", "true"))
	if err != nil {
		log.Errorf(err, "invalid ARTIFACTS_WATCH")
		return nil, err
	}

	baseInterval, err := parseDurationEnv("ARTIFACTS_WATCH_INTERVAL", defaultBaseInterval)
	if err != nil {
		log.Errorf(err, "invalid ARTIFACTS_WATCH_INTERVAL")
		return nil, err
	}

	maxInterval, err := parseDurationEnv("ARTIFACTS_WATCH_MAX_INTERVAL", defaultMaxInterval)
	if err != nil {
		log.Errorf(err, "invalid ARTIFACTS_WATCH_MAX_INTERVAL")
		return nil, err
	}

	mappingPath := getEnvOrDefault("MAPPING_PATH", defaultMappingPath)
	indexPath := getEnvOrDefault("INDEX_PATH", defaultIndexPath)

	return &ArtifactsCfg{
		CatalogSource:     catalogSource,
		MappingPath:       mappingPath,
		IndexBackend:      indexBackend,
		IndexPath:         indexPath,
		Bucket:            getEnv("ARTIFACTS_BUCKET"),
		MappingObjectKey:  getEnvOrDefault("MAPPING_OBJECT_KEY", mappingPath),
		IndexObjectKey:    getEnvOrDefault("INDEX_OBJECT_KEY", indexPath),
		WatchEnabled:      watch,
		WatchBaseInterval: baseInterval,
		WatchMaxInterval:  maxInterval,
	}, nil
}

func loadEncoderCfg(log logger.Logger) (*EncoderCfg, error) {
	const (
		defaultTransport  = EncoderTransportGRPC
		defaultHost       = "ml-service"
		defaultPort       = "50051"
		defaultURL        = "http://ml-service:8000"
		defaultTimeout    = 30 * time.Second
		defaultMaxRetries = 1
	)

	transport := strings.ToLower(getEnvOrDefault("ENCODER_TRANSPORT", defaultTransport))
	if transport != EncoderTransportGRPC && transport != EncoderTransportHTTP {
		err := e.Wrap("ENCODER_TRANSPORT="+transport, e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid ENCODER_TRANSPORT")
		return nil, err
	}

	device := domain.ParseDevice(getEnv("ENCODER_DEVICE"))
	if device == domain.DeviceUnknown {
		err := e.Wrap("ENCODER_DEVICE="+getEnv("ENCODER_DEVICE"), e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid ENCODER_DEVICE")
		return nil, err
	}

	timeout, err := parseDurationEnv("ENCODER_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid ENCODER_TIMEOUT")
		return nil, err
	}

	maxRetries, err := parseIntEnv("ENCODER_MAX_RETRIES", defaultMaxRetries)
	if err != nil || maxRetries < 1 {
		err = e.Wrap("ENCODER_MAX_RETRIES", e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid ENCODER_MAX_RETRIES")
		return nil, err
	}

	host := getEnvOrDefault("ML_HOST", defaultHost)
	port := getEnvOrDefault("ML_PORT", defaultPort)

	return &EncoderCfg{
		Transport:  transport,
		Addr:       host + ":" + port,
		URL:        strings.TrimRight(getEnvOrDefault("ENCODER_URL", defaultURL), "/"),
		Device:     device,
		Timeout:    timeout,
		MaxRetries: maxRetries,
	}, nil
}

func loadFetchCfg(log logger.Logger) (*FetchCfg, error) {
	const (
		defaultTimeout   = 10 * time.Second
		defaultMaxBytes  = 20 << 20
		defaultRateBurst = 10
	)

	timeout, err := parseDurationEnv("FETCH_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid FETCH_TIMEOUT")
		return nil, err
	}

	maxBytes, err := parseInt64Env("FETCH_MAX_BYTES", defaultMaxBytes)
	if err != nil {
		log.Errorf(err, "invalid FETCH_MAX_BYTES")
		return nil, err
	}

	rewrites, err := ParseHostRewrites(getEnv("FETCH_HOST_REWRITES"))
	if err != nil {
		log.Errorf(err, "invalid FETCH_HOST_REWRITES")
		return nil, err
	}

	rateLimit := 0.0
	if v := getEnv("FETCH_RATE_LIMIT"); v != "" {
		rateLimit, err = strconv.ParseFloat(v, 64)
		if err != nil || rateLimit < 0 {
			err = e.Wrap("FETCH_RATE_LIMIT="+v, e.ErrIncorrectEnvVariable)
			log.Errorf(err, "invalid FETCH_RATE_LIMIT")
			return nil, err
		}
	}

	burst, err := parseIntEnv("FETCH_RATE_BURST", defaultRateBurst)
	if err != nil {
		log.Errorf(err, "invalid FETCH_RATE_BURST")
		return nil, err
	}

	return &FetchCfg{
		Timeout:      timeout,
		MaxBytes:     maxBytes,
		HostRewrites: rewrites,
		RateLimit:    rateLimit,
		RateBurst:    burst,
	}, nil
}

// ParseHostRewrites разбирает список правил вида "from=to,from2=to2".
func ParseHostRewrites(raw string) ([]HostRewrite, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	rules := make([]HostRewrite, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		from, to, ok := strings.Cut(part, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, e.Wrap(fmt.Sprintf("host rewrite %q", part), e.ErrIncorrectEnvVariable)
		}

		rules = append(rules, HostRewrite{From: from, To: to})
	}

	return rules, nil
}

func loadSearchCfg() (*SearchCfg, error) {
	const (
		defaultFullTopK    = 3
		defaultResultsTopK = 5
		defaultIDsTopK     = 5
		defaultMaxTopK     = 50
	)

	fullTopK, err := parseIntEnv("RECOMMEND_TOP_K", defaultFullTopK)
	if err != nil {
		return nil, e.Wrap("RECOMMEND_TOP_K", err)
	}

	resultsTopK, err := parseIntEnv("SEARCH_TOP_K", defaultResultsTopK)
	if err != nil {
		return nil, e.Wrap("SEARCH_TOP_K", err)
	}

	idsTopK, err := parseIntEnv("URL_TOP_N", defaultIDsTopK)
	if err != nil {
		return nil, e.Wrap("URL_TOP_N", err)
	}

	maxTopK, err := parseIntEnv("MAX_TOP_K", defaultMaxTopK)
	if err != nil {
		return nil, e.Wrap("MAX_TOP_K", err)
	}

	for _, k := range []int{fullTopK, resultsTopK, idsTopK, maxTopK} {
		if k <= 0 {
			return nil, e.Wrap(fmt.Sprintf("top k %d must be positive", k), e.ErrIncorrectEnvVariable)
		}
	}

	return &SearchCfg{
		FullTopK:    fullTopK,
		ResultsTopK: resultsTopK,
		IDsTopK:     idsTopK,
		MaxTopK:     maxTopK,
	}, nil
}

func loadQdrantCfg(logger logger.Logger, required bool) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultCollection     = "catalog_images"
	)

	strPort := getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	port, err := strconv.Atoi(strPort)
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	host := getEnv("QDRANT_HOST")
	if required && host == "" {
		err := fmt.Errorf("QDRANT_HOST is required for INDEX_BACKEND=qdrant")
		logger.Errorf(err, "missing QDRANT_HOST")
		return nil, err
	}

	return &QdrantCfg{
		Host:                 host,
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
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
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadPGDBCfg(log logger.Logger, required bool) (*PGDBCfg, error) {
	const (
		defaultHost           = "localhost"
		defaultPort           = "5432"
		defaultSSLMode        = "disable"
		defaultMigrationsPath = "file://db/migrations"
	)

	cfg := &PGDBCfg{
		Host:           getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:           getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:           getEnv("POSTGRES_USER"),
		Password:       getEnv("POSTGRES_PASSWORD"),
		DBName:         getEnv("POSTGRES_DB"),
		SSLMode:        getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}

	if !required {
		return cfg, nil
	}

	for key, value := range map[string]string{
		"POSTGRES_USER":     cfg.User,
		"POSTGRES_PASSWORD": cfg.Password,
		"POSTGRES_DB":       cfg.DBName,
	} {
		if value == "" {
			err := fmt.Errorf("%s is required for CATALOG_SOURCE=postgres", key)
			log.Errorf(err, "missing %s", key)
			return nil, err
		}
	}

	return cfg, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultResultTTL    = 10 * time.Minute
	)

	dbStr := getEnvOrDefault("REDIS_DB_ID", strconv.Itoa(defaultDB))
	db, err := strconv.Atoi(dbStr)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("REDIS_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid REDIS_MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("REDIS_DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("REDIS_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("REDIS_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_WRITE_TIMEOUT")
		return nil, err
	}

	resultTTL, err := parseDurationEnv("RESULT_CACHE_TTL", defaultResultTTL)
	if err != nil {
		log.Errorf(err, "invalid RESULT_CACHE_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:        getEnv("REDIS_ADDR"),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		ResultTTL:   resultTTL,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultTopic             = "recommendation-events"
		defaultNetworkMode       = "tcp"
		defaultPartitions        = 1
		defaultReplicationFactor = 1
		defaultBufferSize        = 1024
		defaultBatchSize         = 100
		defaultFlushInterval     = time.Second
	)

	var brokers []string
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replication, err := parseIntEnv("KAFKA_REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("KAFKA_REPLICATION_FACTOR", err)
	}

	bufferSize, err := parseIntEnv("KAFKA_BUFFER_SIZE", defaultBufferSize)
	if err != nil {
		return nil, e.Wrap("KAFKA_BUFFER_SIZE", err)
	}

	batchSize, err := parseIntEnv("KAFKA_BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return nil, e.Wrap("KAFKA_BATCH_SIZE", err)
	}

	flushInterval, err := parseDurationEnv("KAFKA_FLUSH_INTERVAL", defaultFlushInterval)
	if err != nil {
		return nil, e.Wrap("KAFKA_FLUSH_INTERVAL", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		Partitions:        partitions,
		ReplicationFactor: replication,
		BufferSize:        bufferSize,
		BatchSize:         batchSize,
		FlushInterval:     flushInterval,
	}, nil
}

func loadTracingCfg() (*TracingCfg, error) {
	const (
		defaultServiceName = "campus-closet-recommender"
		defaultVersion     = "0.1.0"
		defaultSampleRate  = 1.0
	)

	rate := defaultSampleRate
	if v := getEnv("OTEL_SAMPLE_RATE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return nil, e.Wrap("OTEL_SAMPLE_RATE", e.ErrIncorrectEnvVariable)
		}
		rate = parsed
	}

	return &TracingCfg{
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:    getEnvOrDefault("OTEL_SERVICE_NAME", defaultServiceName),
		ServiceVersion: getEnvOrDefault("SERVICE_VERSION", defaultVersion),
		SampleRate:     rate,
	}, nil
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

func parseInt64Env(key string, defaultValue int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.ParseInt(v, 10, 64)
	if err != nil || intValue <= 0 {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
