package withings

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

type MeasureType int

const (
	TypeWeight                MeasureType = 1
	TypeHeight                MeasureType = 4
	TypeFatFreeMass           MeasureType = 5
	TypeFatRatio              MeasureType = 6
	TypeFatMassWeight         MeasureType = 8
	TypeDiastolic             MeasureType = 9
	TypeSystolic              MeasureType = 10
	TypeHeartPulse            MeasureType = 11
	TypeTemperature           MeasureType = 12
	TypeSpO2                  MeasureType = 54
	TypeBodyTemperature       MeasureType = 71
	TypeSkinTemperature       MeasureType = 73
	TypeMuscleMass            MeasureType = 76
	TypeHydration             MeasureType = 77
	TypeBoneMass              MeasureType = 88
	TypePulseWaveVelocity     MeasureType = 91
	TypeVO2Max                MeasureType = 123
	TypeAtrialFibrillation    MeasureType = 130
	TypeQRSInterval           MeasureType = 135
	TypePRInterval            MeasureType = 136
	TypeQTInterval            MeasureType = 137
	TypeCorrectedQTInterval   MeasureType = 138
	TypeAtrialFibrillationPPG MeasureType = 139
	TypeVascularAge           MeasureType = 155
	TypeNerveHealthScore      MeasureType = 167
	TypeExtracellularWater    MeasureType = 168
	TypeIntracellularWater    MeasureType = 169
	TypeVisceralFat           MeasureType = 170
	TypeFatFreeMassSegments   MeasureType = 173
	TypeFatMassSegments       MeasureType = 174
	TypeMuscleMassSegments    MeasureType = 175
	TypeElectrodermalActivity MeasureType = 196
	TypeBasalMetabolicRate    MeasureType = 226
)

type measureInfo struct {
	name string
	unit string
}

var measureInfos = map[MeasureType]measureInfo{
	TypeWeight:                {name: "Weight", unit: "kg"},
	TypeHeight:                {name: "Height", unit: "meter"},
	TypeFatFreeMass:           {name: "Fat Free Mass", unit: "kg"},
	TypeFatRatio:              {name: "Fat Ratio", unit: "%"},
	TypeFatMassWeight:         {name: "Fat Mass Weight", unit: "kg"},
	TypeDiastolic:             {name: "Diastolic Blood Pressure", unit: "mmHg"},
	TypeSystolic:              {name: "Systolic Blood Pressure", unit: "mmHg"},
	TypeHeartPulse:            {name: "Heart Pulse", unit: "bpm"},
	TypeTemperature:           {name: "Temperature", unit: "celsius"},
	TypeSpO2:                  {name: "SP02", unit: "%"},
	TypeBodyTemperature:       {name: "Body Temperature", unit: "celsius"},
	TypeSkinTemperature:       {name: "Skin Temperature", unit: "celsius"},
	TypeMuscleMass:            {name: "Muscle Mass", unit: "kg"},
	TypeHydration:             {name: "Hydration", unit: "kg"},
	TypeBoneMass:              {name: "Bone Mass", unit: "kg"},
	TypePulseWaveVelocity:     {name: "Pulse Wave Velocity", unit: "m/s"},
	TypeVO2Max:                {name: "VO2 max", unit: "ml/min/kg"},
	TypeAtrialFibrillation:    {name: "Atrial Fibrillation", unit: ""},
	TypeQRSInterval:           {name: "QRS Interval Duration", unit: "ms"},
	TypePRInterval:            {name: "PR Interval Duration", unit: "ms"},
	TypeQTInterval:            {name: "QT Interval Duration", unit: "ms"},
	TypeCorrectedQTInterval:   {name: "Corrected QT Interval Duration", unit: "ms"},
	TypeAtrialFibrillationPPG: {name: "Atrial Fibrillation PPG", unit: ""},
	TypeVascularAge:           {name: "Vascular Age", unit: "years"},
	TypeNerveHealthScore:      {name: "Nerve Health Score", unit: ""},
	TypeExtracellularWater:    {name: "Extracellular Water", unit: "kg"},
	TypeIntracellularWater:    {name: "Intracellular Water", unit: "kg"},
	TypeVisceralFat:           {name: "Visceral Fat", unit: ""},
	TypeFatFreeMassSegments:   {name: "Fat Free Mass Segments", unit: "kg"},
	TypeFatMassSegments:       {name: "Fat Mass Segments", unit: "kg"},
	TypeMuscleMassSegments:    {name: "Muscle Mass Segments", unit: "kg"},
	TypeElectrodermalActivity: {name: "Electrodermal Activity", unit: ""},
	TypeBasalMetabolicRate:    {name: "Basal Metabolic Rate", unit: "kcal"},
}

func (t MeasureType) String() string {
	if info, ok := measureInfos[t]; ok {
		return info.name
	}
	return "Unknown(" + strconv.Itoa(int(t)) + ")"
}

// Unit is the human-readable unit of the decoded value, "" when dimensionless or unknown.
func (t MeasureType) Unit() string {
	return measureInfos[t].unit
}

func (t MeasureType) Known() bool {
	_, ok := measureInfos[t]
	return ok
}

// Measure is one raw reading; the decoded value is Raw * 10^Unit.
type Measure struct {
	Type MeasureType `json:"type"`
	Raw  int64       `json:"value"`
	Unit int         `json:"unit"`
}

func (m Measure) Value() float64 {
	return round2(float64(m.Raw) * math.Pow10(m.Unit))
}

func (m Measure) String() string {
	s := fmt.Sprintf("%s: %.2f", m.Type, m.Value())
	if u := m.Type.Unit(); u != "" {
		s += " " + u
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type MeasureGroup struct {
	ID       int64     `json:"grpid"`
	Attrib   int       `json:"attrib"`
	Date     int64     `json:"date"`
	Category int       `json:"category"`
	Measures []Measure `json:"measures"`
}

func (g MeasureGroup) Time() time.Time {
	return time.Unix(g.Date, 0).UTC()
}

// Get returns the decoded value of the first measure of type t.
func (g MeasureGroup) Get(t MeasureType) (float64, bool) {
	for _, m := range g.Measures {
		if m.Type == t {
			return m.Value(), true
		}
	}
	return 0, false
}

func (g MeasureGroup) Weight() (float64, bool) { return g.Get(TypeWeight) }
func (g MeasureGroup) Height() (float64, bool) { return g.Get(TypeHeight) }
func (g MeasureGroup) FatFreeMass() (float64, bool) { return g.Get(TypeFatFreeMass) }
func (g MeasureGroup) FatRatio() (float64, bool) { return g.Get(TypeFatRatio) }
func (g MeasureGroup) FatMassWeight() (float64, bool) { return g.Get(TypeFatMassWeight) }
func (g MeasureGroup) Diastolic() (float64, bool) { return g.Get(TypeDiastolic) }
func (g MeasureGroup) Systolic() (float64, bool) { return g.Get(TypeSystolic) }
func (g MeasureGroup) HeartPulse() (float64, bool) { return g.Get(TypeHeartPulse) }
func (g MeasureGroup) Temperature() (float64, bool) { return g.Get(TypeTemperature) }
func (g MeasureGroup) SpO2() (float64, bool) { return g.Get(TypeSpO2) }
func (g MeasureGroup) BodyTemperature() (float64, bool) { return g.Get(TypeBodyTemperature) }
func (g MeasureGroup) SkinTemperature() (float64, bool) { return g.Get(TypeSkinTemperature) }
func (g MeasureGroup) MuscleMass() (float64, bool) { return g.Get(TypeMuscleMass) }
func (g MeasureGroup) Hydration() (float64, bool) { return g.Get(TypeHydration) }
func (g MeasureGroup) BoneMass() (float64, bool) { return g.Get(TypeBoneMass) }
func (g MeasureGroup) PulseWaveVelocity() (float64, bool) { return g.Get(TypePulseWaveVelocity) }
