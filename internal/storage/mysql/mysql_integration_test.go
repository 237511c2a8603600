//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"review_insights/internal/app"
	"review_insights/internal/domain"
	mysqlrepo "review_insights/internal/storage/mysql"
)

func TestRepo_MySQL_FetchReviews(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviews",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "reviews")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo, err := mysqlrepo.New(db, "api_review")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	for _, s := range []int{5, 5, 4, 3, 2} {
		if _, err := repo.Insert(ctx, domain.ReviewRecord{Text: fmt.Sprintf("review scored %d", s), PredictedScore: s}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	recs, err := repo.FetchReviews(ctx)
	if err != nil {
		t.Fatalf("FetchReviews: %v", err)
	}
	if len(recs) != 5 || recs[0].ID != "1" || recs[0].PredictedScore != 5 {
		t.Fatalf("unexpected records: %+v", recs)
	}

	stats := app.Recompute(recs)
	if stats.TotalReviews != 5 || stats.AverageRating != 3.8 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// submitted reviews go through the table and survive the next refresh
	ctrl := app.NewRefreshController(nil)
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = ctrl.Run(runCtx) }()

	ing := app.NewIngestionService(repo, ctrl)
	rv, err := ing.Submit(ctx, domain.ReviewRecord{PredictedScore: 1, Text: "late"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rv.ID != "6" {
		t.Fatalf("submitted id = %q", rv.ID)
	}
	if _, err := ing.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if cur := ctrl.Current().Stats; cur.TotalReviews != 6 || cur.Distribution.Count(1) != 1 {
		t.Fatalf("unexpected stats after refresh: %+v", cur)
	}
}
