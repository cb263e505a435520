package upload

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/HSouheill/barrim_onboarding/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AssetUploader uploads one asset.
type AssetUploader interface {
	Upload(ctx context.Context, businessID, category, name string, src models.AssetSource) (models.AssetReference, error)
}

// NamedAsset is one entry of a pipeline run.
type NamedAsset struct {
	Name     string
	Category string
	Source   models.AssetSource
}

// PhotoAssets names business photos businessPhoto_1..n in input order.
func PhotoAssets(photos []models.MediaAsset) []NamedAsset {
	assets := make([]NamedAsset, 0, len(photos))
	for i := range photos {
		assets = append(assets, NamedAsset{
			Name:     models.AssetBusinessPhotoPrefix + strconv.Itoa(i+1),
			Category: models.CategoryVerification,
			Source:   photos[i].Source(),
		})
	}
	return assets
}

// Outcome is the settled result of a pipeline run. Photos holds the
// business photo references in input order.
type Outcome struct {
	Results  map[string]models.AssetReference
	Photos   []models.AssetReference
	Failures []string
}

// Err returns a *PipelineError when any asset failed.
func (o Outcome) Err() error {
	if len(o.Failures) == 0 {
		return nil
	}
	return &PipelineError{Failures: o.Failures}
}

// PipelineError lists the assets that failed to upload.
type PipelineError struct {
	Failures []string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("upload failed: %s", strings.Join(e.Failures, ", "))
}

func (e *PipelineError) Unwrap() error { return ErrUploadFailed }

// Pipeline uploads a batch of assets concurrently.
type Pipeline struct {
	uploader    AssetUploader
	concurrency int
	logger      *zap.Logger
}

// NewPipeline creates a Pipeline. concurrency <= 0 starts every upload at once.
func NewPipeline(uploader AssetUploader, concurrency int, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{uploader: uploader, concurrency: concurrency, logger: logger}
}

// UploadAll starts every upload and returns once all of them settled.
// A failing asset never stops the others.
func (p *Pipeline) UploadAll(ctx context.Context, businessID string, assets []NamedAsset) Outcome {
	var (
		mu  sync.Mutex
		out = Outcome{Results: make(map[string]models.AssetReference, len(assets))}
		g   errgroup.Group
	)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}

	for _, asset := range assets {
		g.Go(func() error {
			ref, err := p.uploader.Upload(ctx, businessID, asset.Category, asset.Name, asset.Source)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Warn("asset upload failed",
					zap.String("businessId", businessID),
					zap.String("asset", asset.Name),
					zap.Error(err))
				out.Failures = append(out.Failures, asset.Name)
				return nil
			}
			out.Results[asset.Name] = ref
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(out.Failures)
	for _, asset := range assets {
		if !strings.HasPrefix(asset.Name, models.AssetBusinessPhotoPrefix) {
			continue
		}
		if ref, ok := out.Results[asset.Name]; ok {
			out.Photos = append(out.Photos, ref)
		}
	}
	return out
}
