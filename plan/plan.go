package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

var (
	ErrPlanNotFound = errors.New("plan not found")
)

// Unlimited marks device counts and durations without a cap.
const Unlimited = -1

// Prices maps currency -> duration in days -> price. The catalog file keys
// durations as strings (JSON objects cannot have numeric keys).
type Prices map[string]map[int]float64

func (p *Prices) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	prices := make(Prices, len(raw))
	for currency, byDuration := range raw {
		prices[currency] = make(map[int]float64, len(byDuration))
		for days, price := range byDuration {
			d, err := strconv.Atoi(days)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", days, err)
			}
			prices[currency][d] = price
		}
	}

	*p = prices
	return nil
}

func (p Prices) MarshalJSON() ([]byte, error) {
	raw := make(map[string]map[string]float64, len(p))
	for currency, byDuration := range p {
		raw[currency] = make(map[string]float64, len(byDuration))
		for days, price := range byDuration {
			raw[currency][strconv.Itoa(days)] = price
		}
	}

	return json.Marshal(raw)
}

type Plan struct {
	Devices int    `json:"devices"`
	Prices  Prices `json:"prices"`
}

// Price returns the price for a duration in a currency, 0 if not offered.
func (p Plan) Price(currency string, duration int) float64 {
	byDuration, ok := p.Prices[currency]
	if !ok {
		return 0
	}

	return byDuration[duration]
}

// Catalog is the operator-maintained set of plans and purchasable durations.
type Catalog struct {
	Plans     []Plan `json:"plans"`
	Durations []int  `json:"durations"`
}

func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var c *Catalog
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}

	if len(c.Plans) == 0 {
		return nil, errors.New("no plans defined")
	}

	if len(c.Durations) == 0 {
		return nil, errors.New("no durations defined")
	}

	return c, nil
}

func (c *Catalog) Plan(devices int) (Plan, error) {
	for _, p := range c.Plans {
		if p.Devices == devices {
			return p, nil
		}
	}

	return Plan{}, ErrPlanNotFound
}

// FormatDevices renders a device count for users.
func FormatDevices(devices int) string {
	if devices == Unlimited {
		return "unlimited devices"
	}

	if devices == 1 {
		return "1 device"
	}

	return strconv.Itoa(devices) + " devices"
}

// FormatPeriod renders a duration in days as years/months/days, whichever
// divides evenly.
func FormatPeriod(days int) string {
	if days == Unlimited {
		return "unlimited"
	}

	if days%365 == 0 {
		years := days / 365
		if years == 1 {
			return "1 year"
		}
		return strconv.Itoa(years) + " years"
	}

	if days%30 == 0 {
		months := days / 30
		if months == 1 {
			return "1 month"
		}
		return strconv.Itoa(months) + " months"
	}

	if days == 1 {
		return "1 day"
	}

	return strconv.Itoa(days) + " days"
}
