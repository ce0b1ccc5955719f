package main

type Config struct {
	LogFile  string `env:"LOG_FILE,default=chat_client.log"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`
}
