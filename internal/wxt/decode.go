package wxt

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/lox/wxtd/internal/models"
)

// Packet is one decoded transmitter message. Each packet type carries only
// its own strongly-typed field set; apply merges it into an observation.
type Packet interface {
	Type() int
	apply(obs *models.Observation)
}

// WindPacket carries the type 1 message: speeds in m/s, directions in
// compass degrees. Absent fields stay nil.
type WindPacket struct {
	StationID                 int
	DirMin, Dir, DirMax       *float64
	SpeedMin, Speed, SpeedMax *float64
}

// PTUPacket carries the type 2 message: pressure in hPa, temperature in
// degrees C, relative humidity in percent.
type PTUPacket struct {
	StationID int
	Temp      *float64
	Humidity  *float64
	Pressure  *float64
}

// PrecipPacket carries the type 3 message. Rain quantities in mm, mm/h and
// seconds; hail in hits/cm2 and the matching rates.
type PrecipPacket struct {
	StationID         int
	RainAccum         *float64
	RainDuration      *float64
	RainIntensity     *float64
	RainPeakIntensity *float64
	HailAccum         *float64
	HailDuration      *float64
	HailIntensity     *float64
	HailPeakIntensity *float64
}

// SupervisorPacket carries the type 5 diagnostic message.
type SupervisorPacket struct {
	StationID        int
	HeatingTemp      *float64
	HeatingVoltage   *float64
	SupplyVoltage    *float64
	ReferenceVoltage *float64
}

// UnknownPacket is a structurally valid packet of a type this driver does
// not extract fields from. Not an error; the record gets only loop-level
// defaults.
type UnknownPacket struct {
	StationID int
	Digit     int
}

// DecodePacket turns the validated comma tokens into a typed packet. The
// first token is the <digit><letter><digit> preamble; the rest are
// code=value pairs with a single trailing unit marker on each value.
func DecodePacket(tokens []string) (Packet, error) {
	header := tokens[0]
	stationID := int(header[0] - '0')
	typ := int(header[2] - '0')

	fields := make(map[string]string, len(tokens)-1)
	for _, tok := range tokens[1:] {
		code, val, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, &MalformedFieldError{Token: tok, Reason: "missing '='"}
		}
		if strings.Contains(val, "=") {
			return nil, &MalformedFieldError{Token: tok, Reason: "more than one '='"}
		}
		fields[code] = val
	}

	switch typ {
	case 1:
		return decodeWind(stationID, fields)
	case 2:
		return decodePTU(stationID, fields)
	case 3:
		return decodePrecip(stationID, fields)
	case 5:
		return decodeSupervisor(stationID, fields)
	default:
		return &UnknownPacket{StationID: stationID, Digit: typ}, nil
	}
}

// field looks up a known code and decodes its tagged value, converting to
// the canonical unit for its quantity class. Absent codes return nil;
// unrecognized codes in the map are simply never looked up.
func field(fields map[string]string, code string, conv func(float64, byte) float64) (*float64, error) {
	val, ok := fields[code]
	if !ok {
		return nil, nil
	}
	if len(val) < 2 {
		return nil, &MalformedFieldError{Token: code + "=" + val, Reason: "too short for a tagged value"}
	}
	num, err := strconv.ParseFloat(val[:len(val)-1], 64)
	if err != nil {
		return nil, &MalformedFieldError{Token: code + "=" + val, Reason: "invalid numeric prefix"}
	}
	num = conv(num, val[len(val)-1])
	return &num, nil
}

// Unit-marker conversions to canonical metric quantities.

func toSpeed(v float64, unit byte) float64 { // m/s
	switch unit {
	case 'K': // km/h
		return v / 3.6
	case 'S': // mph
		return v * 0.44704
	case 'N': // knots
		return v * 0.514444
	default: // 'M' m/s
		return v
	}
}

func toTemp(v float64, unit byte) float64 { // degrees C
	if unit == 'F' {
		return (v - 32) * 5 / 9
	}
	return v
}

func toPressure(v float64, unit byte) float64 { // hPa
	switch unit {
	case 'P': // Pa
		return v / 100
	case 'B': // bar
		return v * 1000
	case 'I': // inHg
		return v * 33.8639
	case 'M': // mmHg
		return v * 1.33322
	default: // 'H' hPa
		return v
	}
}

func toRain(v float64, unit byte) float64 { // mm, mm/h
	if unit == 'I' { // inches
		return v * 25.4
	}
	return v
}

func ident(v float64, _ byte) float64 { return v }

type fieldSpec struct {
	code string
	dst  **float64
	conv func(float64, byte) float64
}

func decodeFields(fields map[string]string, specs []fieldSpec) error {
	for _, f := range specs {
		v, err := field(fields, f.code, f.conv)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

func decodeWind(stationID int, fields map[string]string) (*WindPacket, error) {
	p := &WindPacket{StationID: stationID}
	err := decodeFields(fields, []fieldSpec{
		{"Dn", &p.DirMin, ident},
		{"Dm", &p.Dir, ident},
		{"Dx", &p.DirMax, ident},
		{"Sn", &p.SpeedMin, toSpeed},
		{"Sm", &p.Speed, toSpeed},
		{"Sx", &p.SpeedMax, toSpeed},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodePTU(stationID int, fields map[string]string) (*PTUPacket, error) {
	p := &PTUPacket{StationID: stationID}
	err := decodeFields(fields, []fieldSpec{
		{"Ta", &p.Temp, toTemp},
		{"Ua", &p.Humidity, ident},
		{"Pa", &p.Pressure, toPressure},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodePrecip(stationID int, fields map[string]string) (*PrecipPacket, error) {
	p := &PrecipPacket{StationID: stationID}
	err := decodeFields(fields, []fieldSpec{
		{"Rc", &p.RainAccum, toRain},
		{"Rd", &p.RainDuration, ident},
		{"Ri", &p.RainIntensity, toRain},
		{"Rp", &p.RainPeakIntensity, toRain},
		{"Hc", &p.HailAccum, ident},
		{"Hd", &p.HailDuration, ident},
		{"Hi", &p.HailIntensity, ident},
		{"Hp", &p.HailPeakIntensity, ident},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeSupervisor(stationID int, fields map[string]string) (*SupervisorPacket, error) {
	p := &SupervisorPacket{StationID: stationID}
	err := decodeFields(fields, []fieldSpec{
		{"Th", &p.HeatingTemp, toTemp},
		{"Vh", &p.HeatingVoltage, ident},
		{"Vs", &p.SupplyVoltage, ident},
		{"Vr", &p.ReferenceVoltage, ident},
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (p *WindPacket) Type() int { return 1 }

func (p *WindPacket) apply(obs *models.Observation) {
	obs.StationID = sql.NullInt64{Int64: int64(p.StationID), Valid: true}
	obs.WindSpeedMin = nullFloat(p.SpeedMin)
	obs.WindSpeed = nullFloat(p.Speed)
	obs.WindSpeedMax = nullFloat(p.SpeedMax)
	obs.WindDirMin = nullFloat(p.DirMin)
	obs.WindDir = nullFloat(p.Dir)
	obs.WindDirMax = nullFloat(p.DirMax)
}

func (p *PTUPacket) Type() int { return 2 }

func (p *PTUPacket) apply(obs *models.Observation) {
	obs.StationID = sql.NullInt64{Int64: int64(p.StationID), Valid: true}
	obs.OutTemp = nullFloat(p.Temp)
	obs.OutHumidity = nullFloat(p.Humidity)
	obs.Pressure = nullFloat(p.Pressure)
}

func (p *PrecipPacket) Type() int { return 3 }

func (p *PrecipPacket) apply(obs *models.Observation) {
	obs.StationID = sql.NullInt64{Int64: int64(p.StationID), Valid: true}
	obs.LongTermRain = nullFloat(p.RainAccum)
	obs.RainDuration = nullFloat(p.RainDuration)
	obs.RainIntensity = nullFloat(p.RainIntensity)
	obs.RainPeakIntensity = nullFloat(p.RainPeakIntensity)
	obs.Hail = nullFloat(p.HailAccum)
	obs.HailDuration = nullFloat(p.HailDuration)
	obs.HailIntensity = nullFloat(p.HailIntensity)
	obs.HailPeakIntensity = nullFloat(p.HailPeakIntensity)
}

func (p *SupervisorPacket) Type() int { return 5 }

func (p *SupervisorPacket) apply(obs *models.Observation) {
	obs.StationID = sql.NullInt64{Int64: int64(p.StationID), Valid: true}
	obs.HeatingTemp = nullFloat(p.HeatingTemp)
	obs.HeatingVoltage = nullFloat(p.HeatingVoltage)
	obs.SupplyVoltage = nullFloat(p.SupplyVoltage)
	obs.ReferenceVoltage = nullFloat(p.ReferenceVoltage)
}

func (p *UnknownPacket) Type() int { return p.Digit }

func (p *UnknownPacket) apply(obs *models.Observation) {
	obs.StationID = sql.NullInt64{Int64: int64(p.StationID), Valid: true}
}
