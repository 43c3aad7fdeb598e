package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/transitworks/bus-booking-backend/internal/models"
)

// CancellationTier grants a refund percentage to cancellations made at least
// HoursBefore hours ahead of departure.
type CancellationTier struct {
	HoursBefore   float64
	RefundPercent float64
}

// CancellationPolicy is the table-driven fee schedule applied when a booking
// is cancelled. Tiers are evaluated from the largest lead time down; the first
// tier the cancellation still qualifies for wins. A cancellation after
// departure refunds nothing.
type CancellationPolicy struct {
	tiers []CancellationTier
}

// NewCancellationPolicy parses a schedule like "24:100,12:75,6:50,0:25",
// each pair being hoursBefore:refundPercent.
func NewCancellationPolicy(schedule string) (*CancellationPolicy, error) {
	parts := strings.Split(schedule, ",")
	tiers := make([]CancellationTier, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid cancellation tier %q", part)
		}
		hours, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cancellation tier hours %q: %w", part, err)
		}
		percent, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cancellation tier percent %q: %w", part, err)
		}
		if hours < 0 || percent < 0 || percent > 100 {
			return nil, fmt.Errorf("cancellation tier %q out of range", part)
		}
		tiers = append(tiers, CancellationTier{HoursBefore: hours, RefundPercent: percent})
	}

	if len(tiers) == 0 {
		return nil, fmt.Errorf("cancellation schedule %q has no tiers", schedule)
	}

	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].HoursBefore > tiers[j].HoursBefore
	})

	return &CancellationPolicy{tiers: tiers}, nil
}

// Assess computes the cancellation fee and refund for a booking total given
// the departure time and the moment of cancellation.
func (p *CancellationPolicy) Assess(total float64, departureAt, cancelledAt time.Time) models.CancellationResult {
	hoursUntil := departureAt.Sub(cancelledAt).Hours()

	percent := 0.0
	if hoursUntil >= 0 {
		for _, tier := range p.tiers {
			if hoursUntil >= tier.HoursBefore {
				percent = tier.RefundPercent
				break
			}
		}
	}

	refund := roundMoney(total * percent / 100)
	return models.CancellationResult{
		CancellationFee: roundMoney(total - refund),
		RefundAmount:    refund,
	}
}

func roundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
