package catalog

import (
	"context"

	appcfg "github.com/gmaidana/cursos-chatbot-go/internal/config"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/r2client"
)

// LoadFromConfig loads the catalog from the configured source: the R2 object
// when a complete R2 source is configured, otherwise the local JSON file.
// A missing or malformed source degrades to an empty catalog with a warning;
// the service starts either way.
func LoadFromConfig(ctx context.Context, cfg *appcfg.Config, log *logger.Logger, rec IntegrityRecorder) *Catalog {
	if cfg.HasR2Source() {
		cat, err := loadFromR2(ctx, cfg, log, rec)
		if err == nil {
			return cat
		}
		log.WithModule("catalog").WithError(err).Warn("R2 catalog source failed, trying local file")
	}

	cat, err := LoadFromFile(cfg.CatalogPath, log, rec)
	if err != nil {
		log.WithModule("catalog").WithError(err).Warn("Catalog source unavailable, starting with empty catalog")
		return Empty()
	}
	return cat
}

func loadFromR2(ctx context.Context, cfg *appcfg.Config, log *logger.Logger, rec IntegrityRecorder) (*Catalog, error) {
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2Endpoint,
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretKey,
		BucketName:  cfg.R2Bucket,
	})
	if err != nil {
		return nil, err
	}

	body, err := client.DownloadDecoded(ctx, cfg.CatalogKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return Load(body, log, rec)
}
