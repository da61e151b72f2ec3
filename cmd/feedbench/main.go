package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/uniconhq/unicon-backend/config"
	"github.com/uniconhq/unicon-backend/internal/cache"
	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/repository"
	"github.com/uniconhq/unicon-backend/pkg/database"
)

type request struct {
	page int
	seen int64
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

// Compares the recent-articles feed served straight from the database
// against the id-list + payload cache path.
func main() {
	ctx := context.Background()
	cfg := must(config.Load())

	db := must(database.InitDB(cfg))
	mustDo(db.AutoMigrate(
		&model.School{}, &model.User{},
		&model.Article{}, &model.ArticleUser{}, &model.ArticleLike{},
		&model.ArticleView{}, &model.ArticleSave{},
		&model.Course{}, &model.ArticleCourse{},
		&model.Comment{}, &model.CommentLike{},
	))

	N := 20000
	if s := os.Getenv("N"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			N = n
		}
	}
	REQ := 5000
	if s := os.Getenv("REQ"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			REQ = n
		}
	}

	fmt.Println("Seeding test data...")
	school := model.School{Name: "Benchmark U", Initial: "B", EmailIdentifier: "bench.edu"}
	mustDo(db.Create(&school).Error)
	author := model.User{Email: "author@bench.edu", Password: "x", SchoolID: school.ID, IsValidated: true}
	reader := model.User{Email: "reader@bench.edu", Password: "x", SchoolID: school.ID, IsValidated: true}
	mustDo(db.Create(&author).Error)
	mustDo(db.Create(&reader).Error)

	base := time.Now()
	rnd := rand.New(rand.NewSource(42))
	articles := make([]model.Article, N)
	for i := 0; i < N; i++ {
		views := int64(rnd.Intn(200))
		likes := int64(rnd.Intn(50))
		comments := int64(rnd.Intn(30))
		articles[i] = model.Article{
			Title:           fmt.Sprintf("post %d", i),
			Body:            "benchmark body",
			UserID:          author.ID,
			CreatedAt:       base.Add(-time.Duration(i) * time.Second),
			ViewsCount:      views,
			LikesCount:      likes,
			CommentsCount:   comments,
			EngagementScore: float64(views + likes*2 + comments*3),
		}
	}
	mustDo(db.CreateInBatches(&articles, 1000).Error)
	fmt.Printf("Seeded %d articles\n", N)

	rdb := database.InitRedis(cfg)
	defer rdb.Close()
	mustDo(rdb.Ping(ctx).Err())
	mustDo(rdb.FlushAll(ctx).Err())

	articleRepo := repository.NewArticleRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	store := cache.NewStore(rdb, 10*time.Minute)
	userIndex := cache.NewUserIndexCache(store, articleRepo, commentRepo)
	ac := cache.NewArticleCache(store, articleRepo, userIndex, cfg.Forum.PageSize)

	reqs := makeRequests(REQ, N/cfg.Forum.PageSize)
	key := cache.ArticleListKey(school.ID, "article-list")
	compute := func(ctx context.Context) ([]int64, error) {
		return articleRepo.RecentIDs(ctx, school.ID)
	}

	// Direct path: full id query plus annotated window per request.
	direct := make([]time.Duration, 0, len(reqs))
	for _, r := range reqs {
		start := time.Now()
		ids := must(articleRepo.RecentIDs(ctx, school.ID))
		lo := (r.page - 1) * cfg.Forum.PageSize
		hi := lo + cfg.Forum.PageSize
		if lo > len(ids) {
			lo = len(ids)
		}
		if hi > len(ids) {
			hi = len(ids)
		}
		_ = must(articleRepo.AnnotatedByIDs(ctx, ids[lo:hi]))
		direct = append(direct, time.Since(start))
	}

	// Cached path: warm once, then measure.
	for _, r := range reqs {
		_ = must(ac.GetPage(ctx, reader.ID, key, compute, r.page, r.seen))
	}
	cached := make([]time.Duration, 0, len(reqs))
	for _, r := range reqs {
		start := time.Now()
		_ = must(ac.GetPage(ctx, reader.ID, key, compute, r.page, r.seen))
		cached = append(cached, time.Since(start))
	}

	keys := must(rdb.Keys(ctx, "*").Result())
	fmt.Printf("\nRecent feed latency (%d req, %d articles)\n", REQ, N)
	fmt.Printf("%-12s avg=%v p95=%v p99=%v\n", "Direct DB", avg(direct), pct(direct, 0.95), pct(direct, 0.99))
	fmt.Printf("%-12s avg=%v p95=%v p99=%v cache_keys=%d\n", "Cached", avg(cached), pct(cached, 0.95), pct(cached, 0.99), len(keys))
}

func makeRequests(n, maxPage int) []request {
	if maxPage < 1 {
		maxPage = 1
	}
	out := make([]request, n)
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < n; i++ {
		page := 1
		if rnd.Float64() > 0.72 {
			// simulate deep pagination
			page = 2 + rnd.Intn(maxPage-1+1)
		}
		out[i] = request{page: page, seen: -1}
	}
	return out
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
