package config

import (
	"os"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Ledger  Ledger  `yaml:"ledger"`
	IPFS    IPFS    `yaml:"ipfs"`
	Sweeper Sweeper `yaml:"sweeper"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Ledger struct {
	// RPCEndpoint empty means the in-memory ledger is used.
	RPCEndpoint     string `yaml:"rpcEndpoint"`
	ContractAddress string `yaml:"contractAddress"`
}

type IPFS struct {
	// APIEndpoint empty means the in-memory content store is used.
	APIEndpoint string `yaml:"apiEndpoint"`
}

type Sweeper struct {
	IntervalSeconds int `yaml:"intervalSeconds"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}
	if config.Sweeper.IntervalSeconds <= 0 {
		config.Sweeper.IntervalSeconds = 60
	}

	return config, nil
}
