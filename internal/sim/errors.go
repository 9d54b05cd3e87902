package sim

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFallbackEquipment matches every *NoFallbackEquipmentError.
	ErrNoFallbackEquipment = errors.New("no fallback equipment")
	// ErrMaterialExhausted matches every *MaterialExhaustedError.
	ErrMaterialExhausted = errors.New("material exhausted")
)

// NoFallbackEquipmentError is returned when no operational equipment covers
// a unit's requirements. It aborts the run.
type NoFallbackEquipmentError struct {
	UnitID       int
	Failed       string
	Requirements []string
}

func (e *NoFallbackEquipmentError) Error() string {
	msg := fmt.Sprintf("no operational equipment covers [%s] for unit %d", strings.Join(e.Requirements, ", "), e.UnitID)
	if e.Failed != "" {
		msg += " after " + e.Failed + " failed"
	}
	return msg
}

func (e *NoFallbackEquipmentError) Unwrap() error { return ErrNoFallbackEquipment }

// MaterialExhaustedError is returned when a shortage cannot be covered from
// a backup bin. It aborts the run.
type MaterialExhaustedError struct {
	UnitID   int
	Material string
}

func (e *MaterialExhaustedError) Error() string {
	return fmt.Sprintf("material %s exhausted with no backup stock at unit %d", e.Material, e.UnitID)
}

func (e *MaterialExhaustedError) Unwrap() error { return ErrMaterialExhausted }
