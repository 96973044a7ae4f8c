package wxt

import (
	"database/sql"
	"strconv"

	"github.com/lox/wxtd/internal/models"
)

// Legacy frame unit constants. The fixed-length protocol reports US units.
const (
	milePerKm   = 0.621371
	inHgPerMbar = 0.0295299830714
)

// LegacyPacket is the decoded fixed-length frame: 48 hex characters at known
// byte offsets. Unlike the ASCII messages it carries every quantity in one
// frame, in US units.
type LegacyPacket struct {
	WindSpeed    float64 // mph
	WindDir      float64 // compass degrees
	OutTemp      float64 // degrees F
	LongTermRain float64 // inches
	Pressure     float64 // inHg
	InTemp       float64 // degrees F
	OutHumidity  float64 // percent
	InHumidity   float64 // percent
	DayOfYear    int64
	MinuteOfDay  int64
	DailyRain    float64 // inches
	WindAverage  float64 // mph, one minute average
}

// DecodeLegacyFrame decodes a 48-hex-character frame. The frame layout is
// fixed-width hex fields:
//
//	SSSSXXDDTTTTLLLLPPPPttttHHHHhhhhddddmmmmRRRRWWWW
//
// wind speed (0.1 kph), direction calibration, direction (0-255), out temp
// (0.1 F), long term rain (0.01 in), pressure (0.1 mbar), in temp (0.1 F),
// out humidity (0.1 %), in humidity (0.1 %), day of year, minute of day,
// daily rain (0.01 in), one minute wind average (0.1 kph).
func DecodeLegacyFrame(b string) (*LegacyPacket, error) {
	if len(b) != legacyFrameLen {
		return nil, &IncompleteFrameError{Got: len(b), Want: legacyFrameLen}
	}
	f, err := newHexFields(b)
	if err != nil {
		return nil, err
	}
	return &LegacyPacket{
		WindSpeed:    f.at(0, 4) * 0.1 * milePerKm,
		WindDir:      f.at(6, 8) * 1.411764,
		OutTemp:      f.at(8, 12) * 0.1,
		LongTermRain: f.at(12, 16) * 0.01,
		Pressure:     f.at(16, 20) * 0.1 * inHgPerMbar,
		InTemp:       f.at(20, 24) * 0.1,
		OutHumidity:  f.at(24, 28) * 0.1,
		InHumidity:   f.at(28, 32) * 0.1,
		DayOfYear:    int64(f.at(32, 36)),
		MinuteOfDay:  int64(f.at(36, 40)),
		DailyRain:    f.at(40, 44) * 0.01,
		WindAverage:  f.at(44, 48) * 0.1 * milePerKm,
	}, nil
}

// hexFields validates the whole frame up front so field access can't fail.
type hexFields string

func newHexFields(b string) (hexFields, error) {
	for i := 0; i < len(b); i++ {
		c := b[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') && (c < 'a' || c > 'f') {
			return "", &MalformedFieldError{Token: b, Reason: "non-hex byte in frame"}
		}
	}
	return hexFields(b), nil
}

func (f hexFields) at(lo, hi int) float64 {
	v, _ := strconv.ParseUint(string(f[lo:hi]), 16, 32)
	return float64(v)
}

func (p *LegacyPacket) Type() int { return 0 }

func (p *LegacyPacket) apply(obs *models.Observation) {
	obs.WindSpeed = sql.NullFloat64{Float64: p.WindSpeed, Valid: true}
	obs.WindDir = sql.NullFloat64{Float64: p.WindDir, Valid: true}
	obs.OutTemp = sql.NullFloat64{Float64: p.OutTemp, Valid: true}
	obs.LongTermRain = sql.NullFloat64{Float64: p.LongTermRain, Valid: true}
	obs.Pressure = sql.NullFloat64{Float64: p.Pressure, Valid: true}
	obs.InTemp = sql.NullFloat64{Float64: p.InTemp, Valid: true}
	obs.OutHumidity = sql.NullFloat64{Float64: p.OutHumidity, Valid: true}
	obs.InHumidity = sql.NullFloat64{Float64: p.InHumidity, Valid: true}
	obs.DayOfYear = sql.NullInt64{Int64: p.DayOfYear, Valid: true}
	obs.MinuteOfDay = sql.NullInt64{Int64: p.MinuteOfDay, Valid: true}
	obs.DailyRain = sql.NullFloat64{Float64: p.DailyRain, Valid: true}
	obs.WindAverage = sql.NullFloat64{Float64: p.WindAverage, Valid: true}
}
