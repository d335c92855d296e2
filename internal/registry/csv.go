package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"patrol-service/internal/domain/patrol"
	"patrol-service/internal/utils"
)

var ErrMissingColumn = errors.New("missing required column")

var requiredColumns = []string{"vrn", "license_expiry"}

// RowError describes a line that was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ReadVehicles parses a registry export. The header row names the columns:
// vrn, make, color, owner, license_expiry (YYYY-MM-DD), insurance_status,
// is_stolen, is_wanted. Only vrn and license_expiry are required. Bad rows are
// reported and skipped; a bad header fails the whole file.
func ReadVehicles(r io.Reader) ([]patrol.VehicleRecord, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var (
		vehicles []patrol.VehicleRecord
		skipped  []RowError
	)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read record: %w", err)
		}

		vrn := field(record, "vrn")
		if utils.NormalizePlate(vrn) == "" {
			skipped = append(skipped, RowError{Line: line, Err: errors.New("empty vrn")})
			continue
		}

		expiry, err := time.Parse("2006-01-02", field(record, "license_expiry"))
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: fmt.Errorf("license_expiry: %w", err)})
			continue
		}

		stolen, err := parseFlag(field(record, "is_stolen"))
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: fmt.Errorf("is_stolen: %w", err)})
			continue
		}
		wanted, err := parseFlag(field(record, "is_wanted"))
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: fmt.Errorf("is_wanted: %w", err)})
			continue
		}

		insurance := patrol.InsuranceStatus(field(record, "insurance_status"))
		if insurance == "" {
			insurance = patrol.InsuranceValid
		}

		vehicles = append(vehicles, patrol.VehicleRecord{
			VRN:             strings.ToUpper(vrn),
			Make:            field(record, "make"),
			Color:           field(record, "color"),
			Owner:           field(record, "owner"),
			LicenseExpiry:   expiry,
			InsuranceStatus: insurance,
			Stolen:          stolen,
			Wanted:          wanted,
		})
	}

	return vehicles, skipped, nil
}

func parseFlag(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "", "no", "n":
		return false, nil
	case "yes", "y":
		return true, nil
	}
	return strconv.ParseBool(value)
}
