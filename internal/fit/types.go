package fit

import (
	fitsdk "github.com/tormoder/fit"
)

type FileType uint8

const (
	FileTypeWeight        = FileType(fitsdk.FileTypeWeight)
	FileTypeBloodPressure = FileType(fitsdk.FileTypeBloodPressure)
)

const (
	productID       = 1
	serialNumber    = 1
	softwareVersion = 100
	hardwareVersion = 1
)

type WeightScale struct {
	Weight           float64
	PercentFat       *float64
	PercentHydration *float64
	BoneMass         *float64
	MuscleMass       *float64
	BMI              *float64
}

type BloodPressure struct {
	Systolic  *float64
	Diastolic float64
	HeartRate *float64
}
