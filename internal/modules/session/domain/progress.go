package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodPayerPresence PaymentMethod = "payer_presence"
	MethodSessionTime   PaymentMethod = "session_time"
	MethodLegacy        PaymentMethod = "legacy"
)

const (
	// ImmediateReleasePercent becomes available the instant a session goes active.
	ImmediateReleasePercent = 20
	// DeliveredCompletionPercent of the scheduled duration releases everything.
	DeliveredCompletionPercent = 70
)

var one = decimal.NewFromInt(1)

// Calculator maps elapsed time to a release percentage and amounts. Amounts
// are truncated to the token's minor units so a target never rounds up.
type Calculator struct {
	FeeFraction decimal.Decimal
	Decimals    int32
}

func NewCalculator(fee decimal.Decimal, decimals int32) Calculator {
	return Calculator{FeeFraction: fee, Decimals: decimals}
}

func (c Calculator) Progress(effective, scheduled time.Duration) (int, error) {
	if scheduled <= 0 {
		return 0, fmt.Errorf("%w: scheduled duration must be positive", ErrInvalidSession)
	}
	if effective < 0 {
		return 0, fmt.Errorf("%w: negative elapsed time %s", ErrProgressOutOfRange, effective)
	}
	eff := effective.Milliseconds()
	sched := scheduled.Milliseconds()
	if 100*eff >= DeliveredCompletionPercent*sched {
		return 100, nil
	}
	progressive := int64(100 - ImmediateReleasePercent)
	p := ImmediateReleasePercent + int(progressive*100*eff/(DeliveredCompletionPercent*sched))
	if err := ValidateProgress(p); err != nil {
		return 0, err
	}
	return p, nil
}

func ValidateProgress(p int) error {
	if p < 0 || p > 100 {
		return fmt.Errorf("%w: %d", ErrProgressOutOfRange, p)
	}
	return nil
}

func (c Calculator) Ceiling(total decimal.Decimal) decimal.Decimal {
	return total.Mul(one.Sub(c.FeeFraction)).Truncate(c.Decimals)
}

func (c Calculator) Target(total decimal.Decimal, progress int) (decimal.Decimal, error) {
	if err := ValidateProgress(progress); err != nil {
		return decimal.Zero, err
	}
	target := total.Mul(decimal.NewFromInt(int64(progress))).Shift(-2).Mul(one.Sub(c.FeeFraction)).Truncate(c.Decimals)
	if ceiling := c.Ceiling(total); target.GreaterThan(ceiling) {
		return decimal.Zero, fmt.Errorf("%w: target %s above ceiling %s", ErrReleaseExceedsCeiling, target, ceiling)
	}
	return target, nil
}

// Available is the target at progress minus what was already released, never
// negative. A released amount above the ceiling is a defect and is reported.
func (c Calculator) Available(total, released decimal.Decimal, progress int) (decimal.Decimal, error) {
	if released.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative released amount %s", ErrInvalidRelease, released)
	}
	if ceiling := c.Ceiling(total); released.GreaterThan(ceiling) {
		return decimal.Zero, fmt.Errorf("%w: released %s above ceiling %s", ErrReleaseExceedsCeiling, released, ceiling)
	}
	target, err := c.Target(total, progress)
	if err != nil {
		return decimal.Zero, err
	}
	available := target.Sub(released)
	if available.IsNegative() {
		return decimal.Zero, nil
	}
	return available, nil
}
