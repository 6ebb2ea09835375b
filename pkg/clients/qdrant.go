package clients

import (
	"context"

	config "github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

type QdrantClient struct {
	Client *qdrant.Client
	cfg    *config.QdrantCfg
}

func NewQdrantClient(cfg *config.QdrantCfg) (*QdrantClient, error) {
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.ApiKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &QdrantClient{
		Client: qdrantClient,
		cfg:    cfg,
	}, nil
}

// EnsureCollection создаёт коллекцию с евклидовой метрикой, если её ещё нет.
func EnsureCollection(ctx context.Context, client *QdrantClient, dim uint64) error {
	exists, err := client.Client.CollectionExists(ctx, client.cfg.QdrantCollectionName)
	if err != nil {
		return e.Wrap("failed to check collection existence", err)
	}

	if !exists {
		if err := client.Client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: client.cfg.QdrantCollectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dim,
				Distance: qdrant.Distance_Euclid,
			}),
		}); err != nil {
			return e.Wrap("failed to create collection", err)
		}
	}

	return nil
}

func (c *QdrantClient) Close() error {
	return c.Client.Close()
}
