package app

import (
	"context"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/logger"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

// ExportHandler writes the persisted predictor sweep results to a CSV file
// for downstream consumption.
type ExportHandler struct {
	Store repository.TableStore
}

type ExportInput struct {
	ResultsTable string
	Path         string
	// RunID optionally restricts the export to a single sweep run.
	RunID string
}

func (h ExportHandler) Run(ctx context.Context, in ExportInput) error {
	log := logger.FromContext(ctx)
	records, err := h.Store.ReadAll(ctx, in.ResultsTable)
	if err != nil {
		return err
	}

	results := make([]*domain.PredictorResult, 0, len(records))
	for _, record := range records {
		runID, err := uuid.Parse(recordString(record["run_id"]))
		if err != nil {
			continue
		}
		if in.RunID != "" && runID.String() != in.RunID {
			continue
		}
		result := &domain.PredictorResult{
			RunID:       runID,
			Independent: recordString(record["independent"]),
			Dependent:   recordString(record["dependent"]),
		}
		result.Coefficient, _ = recordFloat(record["coefficient"])
		result.StdErr, _ = recordFloat(record["std_err"])
		result.PValue, _ = recordFloat(record["p_value"])
		result.RSquared, _ = recordFloat(record["r_squared"])
		if n, ok := recordFloat(record["sample_size"]); ok {
			result.SampleSize = int(n)
		}
		result.Significant, _ = strconv.ParseBool(recordString(record["significant"]))
		results = append(results, result)
	}

	file, err := os.Create(in.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		return err
	}
	log.Infow("exported predictor results", "path", in.Path, "rows", len(results))
	return nil
}
