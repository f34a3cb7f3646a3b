package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Session  Session
	Task     Task
	Stream   Stream
	Log      Log
}

type Server struct {
	Addr string
}

type Database struct {
	DSN string
}

type Session struct {
	TTL time.Duration
}

type Task struct {
	// Retention is how long a done task stays visible in default listings.
	Retention   time.Duration
	ListLimit   int
	BotTemplate string
}

type Stream struct {
	SendQueueSize int
	ReadBuffer    int
	WriteBuffer   int
	PingInterval  time.Duration
}

type Log struct {
	Level string
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("chatapp")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CHATAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; defaults + env cover every key.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.dsn", "postgres://localhost:5432/chatapp?sslmode=disable")
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("task.retention", 14*24*time.Hour)
	v.SetDefault("task.listlimit", 200)
	v.SetDefault("task.bottemplate", "")
	v.SetDefault("stream.sendqueuesize", 64)
	v.SetDefault("stream.readbuffer", 4096)
	v.SetDefault("stream.writebuffer", 4096)
	v.SetDefault("stream.pinginterval", 25*time.Second)
	v.SetDefault("log.level", "info")
}
