package utils

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger.go - настройка структурированного логирования
//
// Используется logrus с двумя форматами (JSON для продакшена, text для
// разработки) и ротацией лог-файлов через lumberjack.

// LoggerConfig - параметры инициализации логгера
type LoggerConfig struct {
	Level      string // debug | info | warn | error
	Format     string // json | text
	File       string // путь к файлу логов (пусто = только stdout)
	MaxSizeMB  int    // размер файла до ротации
	MaxBackups int    // количество хранимых ротаций
}

// InitLogger создаёт и настраивает глобальный logrus логгер
func InitLogger(cfg LoggerConfig) *logrus.Logger {
	log := logrus.New()

	log.SetLevel(parseLevel(cfg.Level))

	if strings.EqualFold(cfg.Format, "text") {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxOr(cfg.MaxSizeMB, 50),
			MaxBackups: maxOr(cfg.MaxBackups, 5),
			Compress:   true,
		}
		// Пишем и в файл, и в stdout
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	} else {
		log.SetOutput(os.Stdout)
	}

	return log
}

// parseLevel преобразует строковый уровень в logrus.Level
// Неизвестный уровень даёт info
func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func maxOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
