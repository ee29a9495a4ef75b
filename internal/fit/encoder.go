package fit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	fitsdk "github.com/tormoder/fit"
)

// headerSize is the 14-byte header written by fitsdk.NewHeader with a header CRC.
const headerSize = 14

var (
	ErrFinished        = errors.New("fit encoder already finished")
	ErrIncompleteFile  = errors.New("fit file truncated")
	ErrWrongFileType   = errors.New("message does not belong to this fit file type")
	ErrUnsupportedType = errors.New("unsupported fit file type")
)

// Encoder builds one weight or blood pressure FIT file in memory.
type Encoder struct {
	fileType FileType
	file     *fitsdk.File
	weight   *fitsdk.WeightFile
	bp       *fitsdk.BloodPressureFile
	err      error
	out      []byte
}

// NewEncoder never fails; a setup error is returned by the first Write or Finish.
func NewEncoder(fileType FileType) *Encoder {
	e := &Encoder{fileType: fileType}

	switch fileType {
	case FileTypeWeight, FileTypeBloodPressure:
	default:
		e.err = fmt.Errorf("%w: %d", ErrUnsupportedType, fileType)
		return e
	}

	file, err := fitsdk.NewFile(fitsdk.FileType(fileType), fitsdk.NewHeader(fitsdk.V20, true))
	if err != nil {
		e.err = fmt.Errorf("failed to create fit file: %w", err)
		return e
	}
	e.file = file

	if fileType == FileTypeWeight {
		e.weight, e.err = file.Weight()
	} else {
		e.bp, e.err = file.BloodPressure()
	}
	return e
}

func (e *Encoder) FileType() FileType { return e.fileType }

func (e *Encoder) check() error {
	if e.err != nil {
		return e.err
	}
	if e.out != nil {
		return ErrFinished
	}
	return nil
}

func (e *Encoder) WriteFileInfo(created time.Time) error {
	if err := e.check(); err != nil {
		return err
	}
	e.file.FileId.Type = fitsdk.FileType(e.fileType)
	e.file.FileId.Manufacturer = fitsdk.ManufacturerDevelopment
	e.file.FileId.Product = productID
	e.file.FileId.SerialNumber = serialNumber
	e.file.FileId.TimeCreated = created
	return nil
}

func (e *Encoder) WriteDeviceInfo(ts time.Time) error {
	if err := e.check(); err != nil {
		return err
	}

	info := fitsdk.NewDeviceInfoMsg()
	info.Timestamp = ts
	info.DeviceIndex = 0 // creator
	info.Manufacturer = fitsdk.ManufacturerDevelopment
	info.SerialNumber = serialNumber
	info.Product = productID
	info.SoftwareVersion = softwareVersion
	info.HardwareVersion = hardwareVersion

	if e.weight != nil {
		e.weight.DeviceInfos = append(e.weight.DeviceInfos, info)
	} else {
		e.bp.DeviceInfos = append(e.bp.DeviceInfos, info)
	}
	return nil
}

func (e *Encoder) WriteWeightScale(ts time.Time, w WeightScale) error {
	if err := e.check(); err != nil {
		return err
	}
	if e.weight == nil {
		return ErrWrongFileType
	}

	weight := w.Weight
	msg := fitsdk.NewWeightScaleMsg()
	msg.Timestamp = ts
	msg.Weight = fitsdk.Weight(scaled16(&weight, 100))
	msg.PercentFat = scaled16(w.PercentFat, 100)
	msg.PercentHydration = scaled16(w.PercentHydration, 100)
	msg.BoneMass = scaled16(w.BoneMass, 100)
	msg.MuscleMass = scaled16(w.MuscleMass, 100)
	msg.Bmi = scaled16(w.BMI, 10)

	e.weight.WeightScales = append(e.weight.WeightScales, msg)
	return nil
}

func (e *Encoder) WriteBloodPressure(ts time.Time, bp BloodPressure) error {
	if err := e.check(); err != nil {
		return err
	}
	if e.bp == nil {
		return ErrWrongFileType
	}

	diastolic := bp.Diastolic
	msg := fitsdk.NewBloodPressureMsg()
	msg.Timestamp = ts
	msg.SystolicPressure = scaled16(bp.Systolic, 1)
	msg.DiastolicPressure = scaled16(&diastolic, 1)
	msg.HeartRate = scaled8(bp.HeartRate)

	e.bp.BloodPressures = append(e.bp.BloodPressures, msg)
	return nil
}

// scaled16 encodes v*scale, or the uint16 invalid marker when v is absent or out of range.
func scaled16(v *float64, scale float64) uint16 {
	if v == nil || math.IsNaN(*v) {
		return math.MaxUint16
	}
	x := math.Round(*v * scale)
	if x < 0 || x >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(x)
}

func scaled8(v *float64) uint8 {
	if v == nil || math.IsNaN(*v) {
		return math.MaxUint8
	}
	x := math.Round(*v)
	if x < 0 || x >= math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(x)
}

// Finish encodes the file with header and trailing CRC. Further writes fail with ErrFinished.
func (e *Encoder) Finish() error {
	if err := e.check(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := fitsdk.Encode(&buf, e.file, binary.LittleEndian); err != nil {
		return fmt.Errorf("failed to encode fit file: %w", err)
	}
	e.out = buf.Bytes()
	return nil
}

// Bytes returns the finished file, nil before Finish.
func (e *Encoder) Bytes() []byte {
	return e.out
}

// Verify decodes data, checking the header and file CRCs.
func Verify(data []byte) error {
	if len(data) < headerSize+2 {
		return ErrIncompleteFile
	}
	if _, err := fitsdk.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("invalid fit file: %w", err)
	}
	return nil
}
