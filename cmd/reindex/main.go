package main

import (
	"context"
	"fmt"

	"github.com/uniconhq/unicon-backend/config"
	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/repository"
	"github.com/uniconhq/unicon-backend/internal/search"
	"github.com/uniconhq/unicon-backend/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Rebuilds the similarity index file from the articles table. Run after
// restoring a database dump or when the index file is corrupt.
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	articleRepo := repository.NewArticleRepository(db)
	rows := must(articleRepo.AllEmbeddings(context.Background()))

	index := search.NewIndex(cfg.Embedding.IndexFile, cfg.Embedding.VectorSize)
	ids := make([]int64, len(rows))
	vectors := make([]model.Vector, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		vectors[i] = row.Vector
	}
	must(0, index.Replace(ids, vectors))
	fmt.Printf("indexed %d articles into %s\n", index.Len(), cfg.Embedding.IndexFile)
}
