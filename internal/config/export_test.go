package config

import (
	"time"

	"github.com/shopspring/decimal"
)

func GetEnvAsBool(key string, defaultValue bool) bool {
	return getEnvAsBool(key, defaultValue)
}

func GetEnvAsDecimal(key string, defaultValue string) (decimal.Decimal, error) {
	return getEnvAsDecimal(key, defaultValue)
}

func GetEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	return getEnvAsDuration(key, defaultValue)
}

func AllNonEmpty(keyValues map[string]string) error {
	return allNonEmpty(keyValues)
}

func AllNumbers(keyValues map[string]string) error {
	return allNumbers(keyValues)
}
