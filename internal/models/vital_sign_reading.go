package models

import (
	"time"
)

// VitalSignType identifies one measured vital-sign channel.
type VitalSignType string

const (
	VitalBloodPressure    VitalSignType = "BLOOD_PRESSURE"
	VitalHeartRate        VitalSignType = "HEART_RATE"
	VitalTemperature      VitalSignType = "TEMPERATURE"
	VitalRespiratoryRate  VitalSignType = "RESPIRATORY_RATE"
	VitalOxygenSaturation VitalSignType = "OXYGEN_SATURATION"
)

// ChannelOrder is the fixed evaluation order for the five channels.
// Evaluation output must be stable across runs, so the evaluator always
// iterates channels in this order.
var ChannelOrder = []VitalSignType{
	VitalBloodPressure,
	VitalHeartRate,
	VitalTemperature,
	VitalRespiratoryRate,
	VitalOxygenSaturation,
}

// IsValidVitalSignType reports whether t is one of the five channels.
func IsValidVitalSignType(t VitalSignType) bool {
	for _, known := range ChannelOrder {
		if t == known {
			return true
		}
	}
	return false
}

// VitalSignReading is one recorded measurement set for a patient.
// Every channel is independently optional; a reading may carry any subset.
type VitalSignReading struct {
	ReadingID  string    `json:"reading_id"`
	PatientID  string    `json:"patient_id"`
	MeasuredAt time.Time `json:"measured_at"`

	Systolic         *int     `json:"systolic,omitempty"`
	Diastolic        *int     `json:"diastolic,omitempty"`
	HeartRate        *int     `json:"heart_rate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
}

// ChannelValue is one present channel with its numeric value.
type ChannelValue struct {
	Type  VitalSignType
	Value float64
}

// Channels returns the present channels of the reading in ChannelOrder.
// Blood-pressure rules evaluate the systolic value; the diastolic value is
// recorded on the reading but does not drive rule evaluation.
func (r *VitalSignReading) Channels() []ChannelValue {
	channels := make([]ChannelValue, 0, len(ChannelOrder))
	if r.Systolic != nil {
		channels = append(channels, ChannelValue{Type: VitalBloodPressure, Value: float64(*r.Systolic)})
	}
	if r.HeartRate != nil {
		channels = append(channels, ChannelValue{Type: VitalHeartRate, Value: float64(*r.HeartRate)})
	}
	if r.Temperature != nil {
		channels = append(channels, ChannelValue{Type: VitalTemperature, Value: *r.Temperature})
	}
	if r.RespiratoryRate != nil {
		channels = append(channels, ChannelValue{Type: VitalRespiratoryRate, Value: float64(*r.RespiratoryRate)})
	}
	if r.OxygenSaturation != nil {
		channels = append(channels, ChannelValue{Type: VitalOxygenSaturation, Value: *r.OxygenSaturation})
	}
	return channels
}
