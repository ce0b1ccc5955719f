package main

type Config struct {
	Host           string `env:"HOST,default=0.0.0.0"`
	LogFile        string `env:"LOG_FILE,default=chat_server.log"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./chat_history"`
	HistoryLimit   int    `env:"HISTORY_LIMIT,default=50"`
}
