package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// validator.go - валидация входных данных API и риск-модели

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,12}$`)

// ValidateSymbol проверяет формат символа актива (BTC, ETH, SOL)
// Символ - заглавные буквы и цифры, 2-12 знаков
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %q", symbol)
	}
	return nil
}

// ValidateSide проверяет направление позиции
func ValidateSide(side string) error {
	if side != "LONG" && side != "SHORT" {
		return fmt.Errorf("side must be LONG or SHORT, got %q", side)
	}
	return nil
}

// ValidateNotional проверяет номинал позиции
func ValidateNotional(notional float64) error {
	if notional <= 0 {
		return fmt.Errorf("notional value must be positive, got %f", notional)
	}
	return nil
}

// ValidateLeverage проверяет плечо позиции против потолка
func ValidateLeverage(leverage, maxLeverage int) error {
	if leverage < 1 {
		return fmt.Errorf("leverage must be at least 1, got %d", leverage)
	}
	if maxLeverage > 0 && leverage > maxLeverage {
		return fmt.Errorf("leverage %d exceeds maximum %d", leverage, maxLeverage)
	}
	return nil
}

// ValidateRiskThreshold проверяет порог риска (шкала 1-10)
func ValidateRiskThreshold(threshold float64) error {
	if threshold < 1 || threshold > 10 {
		return fmt.Errorf("risk threshold must be in [1, 10], got %f", threshold)
	}
	return nil
}

// ValidateAddress - базовая проверка адреса портфеля
func ValidateAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("portfolio address cannot be empty")
	}
	if len(address) > 128 {
		return fmt.Errorf("portfolio address too long")
	}
	return nil
}
