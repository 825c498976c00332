package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Store  StoreConfig  `mapstructure:"store"`
	Relay  RelayConfig  `mapstructure:"relay"`
	Signer SignerConfig `mapstructure:"signer"`
	Worker WorkerConfig `mapstructure:"worker"`
}

type AppConfig struct {
	Env       string `mapstructure:"env"`
	HttpPort  string `mapstructure:"http_port"`
	AccountID string `mapstructure:"account_id"` // relay 自身的账户 (MPC 派生时的 predecessor)
	Swagger   bool   `mapstructure:"swagger"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" / "kafka" / "memory"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"` // audit 消费组
}

type StoreConfig struct {
	Backend         string `mapstructure:"backend"`          // "memory" / "redis" / "postgres"
	ByteCost        string `mapstructure:"byte_cost"`        // 每字节存储费用 (yocto)
	DistributedLock bool   `mapstructure:"distributed_lock"` // 多实例共享 redis/postgres 状态时开启
}

type RelayConfig struct {
	OracleAccount   string `mapstructure:"oracle_account"`
	OracleToken     string `mapstructure:"oracle_token"` // 通过环境变量 RELAY_ORACLE_TOKEN 传入
	EvmChainID      int64  `mapstructure:"evm_chain_id"`
	BootstrapAmount string `mapstructure:"bootstrap_amount"` // NEAR, 例如 "0.1"
	SignerURL       string `mapstructure:"signer_url"`
	RelayerURL      string `mapstructure:"relayer_url"`
	SignerDeposit   string `mapstructure:"signer_deposit"` // NEAR
}

type SignerConfig struct {
	Mode             string `mapstructure:"mode"`              // "rpc" / "local"
	Mnemonic         string `mapstructure:"mnemonic"`          // 仅 local 模式 (开发环境)
	Keystore         string `mapstructure:"keystore"`          // local 模式下加密保存的助记词, 优先于 mnemonic
	KeystorePassword string `mapstructure:"keystore_password"` // 通过环境变量 SIGNER_KEYSTORE_PASSWORD 传入
}

type WorkerConfig struct {
	Concurrency int  `mapstructure:"concurrency"`
	Inline      bool `mapstructure:"inline"` // true: 不经过 asynq, 在进程内直接执行回调
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量设置: relay.oracle_token -> RELAY_ORACLE_TOKEN
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")
	viper.SetDefault("app.account_id", "relay.testnet")
	viper.SetDefault("app.swagger", true)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "relay_user")
	viper.SetDefault("db.password", "relay_password")
	viper.SetDefault("db.name", "relay_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.group_id", "relay_audit")

	viper.SetDefault("store.backend", "redis")
	viper.SetDefault("store.byte_cost", "10000000000000000000")
	viper.SetDefault("store.distributed_lock", false)

	viper.SetDefault("relay.oracle_account", "oracle.testnet")
	viper.SetDefault("relay.evm_chain_id", 397)
	viper.SetDefault("relay.bootstrap_amount", "0.1")
	viper.SetDefault("relay.signer_url", "http://localhost:3030")
	viper.SetDefault("relay.relayer_url", "http://localhost:3031")
	viper.SetDefault("relay.signer_deposit", "1")

	viper.SetDefault("signer.mode", "rpc")

	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.inline", false)
}

// PostgresDSN 构造 gorm 使用的 DSN
func (c DBConfig) PostgresDSN() string {
	return "host=" + c.Host + " user=" + c.User + " password=" + c.Password +
		" dbname=" + c.Name + " port=" + c.Port + " sslmode=disable TimeZone=UTC"
}

// MigrateURL 构造 golang-migrate 使用的 URL
func (c DBConfig) MigrateURL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=disable"
}
