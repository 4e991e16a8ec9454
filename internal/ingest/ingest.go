// Package ingest reads ingredient catalog files
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/models"
)

// Open returns a reader for a local path or an s3://bucket/key location.
// The bucket in the location overrides the configured one.
func Open(ctx context.Context, location string, s3 *config.S3Config) (io.ReadCloser, error) {
	bucket, key, ok := config.ParseS3URL(location)
	if !ok {
		if strings.HasPrefix(location, "s3://") {
			return nil, fmt.Errorf("malformed s3 location %q", location)
		}
		return os.Open(location)
	}
	if s3 == nil {
		return nil, errors.New("s3 location given but no s3 client configured")
	}
	scoped := *s3
	scoped.BucketName = bucket
	return scoped.Open(ctx, key)
}

// ParseCSV reads name,measurement_unit rows. Blank rows and a leading
// header row are skipped, surrounding whitespace is trimmed.
func ParseCSV(r io.Reader) ([]models.Ingredient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var out []models.Ingredient
	for first := true; ; first = false {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: want name and measurement unit, got %d fields", line, len(record))
		}

		name := strings.TrimSpace(record[0])
		unit := strings.TrimSpace(record[1])
		if first && strings.EqualFold(name, "name") && strings.EqualFold(unit, "measurement_unit") {
			continue
		}
		if name == "" || unit == "" {
			return nil, fmt.Errorf("line %d: name and measurement unit are required", line)
		}
		out = append(out, models.Ingredient{Name: name, MeasurementUnit: unit})
	}
}
