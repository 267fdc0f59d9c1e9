package configuration

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type MongoConfig struct {
	Uri                string `json:"uri"`
	Database           string `json:"database"`
	RoomsCollection    string `json:"roomsCollection"`
	MessagesCollection string `json:"messagesCollection"`
	UsersCollection    string `json:"usersCollection"`
	SocketRoute        string `json:"socketRoute"`
}

type ServerConfig struct {
	AppPort        int      `json:"app_port"`
	SocketPort     int      `json:"socket_port"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type AuthConfig struct {
	JwtSecret string `json:"jwt_secret"`
}

type Config struct {
	ChatDatabase MongoConfig  `json:"mongo"`
	Server       ServerConfig `json:"server"`
	Auth         AuthConfig   `json:"auth"`
}

// envOverrides are applied on top of the JSON file. Secrets come from the
// environment in deployed setups (SERVICEHUB_MONGO_URI, SERVICEHUB_JWT_SECRET).
type envOverrides struct {
	MongoURI  string `envconfig:"MONGO_URI"`
	JwtSecret string `envconfig:"JWT_SECRET"`
}

func LoadConfig(config_path string) (*Config, error) {
	// .env is optional; absence is not an error
	_ = godotenv.Load()

	file, err := os.ReadFile(config_path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = json.Unmarshal(file, &config)
	if err != nil {
		return nil, err
	}

	var env envOverrides
	if err := envconfig.Process("servicehub", &env); err != nil {
		return nil, err
	}
	if env.MongoURI != "" {
		config.ChatDatabase.Uri = env.MongoURI
	}
	if env.JwtSecret != "" {
		config.Auth.JwtSecret = env.JwtSecret
	}

	return &config, nil
}
