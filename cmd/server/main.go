package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/UkralStul/school-board/internal/account"
	"github.com/UkralStul/school-board/internal/api"
	"github.com/UkralStul/school-board/internal/config"
	"github.com/UkralStul/school-board/internal/controller"
	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/events"
	"github.com/UkralStul/school-board/internal/logger"
	"github.com/UkralStul/school-board/internal/marks"
	"github.com/UkralStul/school-board/internal/metrics"
	"github.com/UkralStul/school-board/internal/resource"
	"github.com/UkralStul/school-board/internal/storage"
	"github.com/UkralStul/school-board/internal/storage/inmemory"
	"github.com/UkralStul/school-board/internal/storage/postgres"
	"github.com/UkralStul/school-board/internal/tree"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	storageType := flag.String("storage", cfg.Storage, "Storage type (in-memory or postgres)")
	flag.Parse()
	cfg.Storage = *storageType
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	var store storage.Storage

	log.Printf("Starting server with %s storage", cfg.Storage)
	if cfg.Storage == config.StoragePostgres {
		store, err = postgres.New(cfg.DatabaseURL, postgres.Options{Timeout: cfg.StoreTimeout, LogSQL: cfg.DBLogSQL})
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
	} else {
		store = inmemory.New()
	}

	lg := logger.NewStdLogger()
	m := metrics.New(prometheus.DefaultRegisterer)
	observer := events.NewObserver()

	engine := marks.NewEngine(store, marks.WithMetrics(m), marks.WithLogger(lg))
	assembler := tree.New(store, cfg.ReplyMaxDepth)
	resources := resource.NewService(store, engine, assembler,
		resource.WithPublisher(observer),
		resource.WithLogger(lg),
	)
	accounts := account.NewService(store, account.WithLogger(lg))
	ctrl := controller.New(accounts, resources)

	if cfg.Storage == config.StorageInMemory && cfg.SeedData {
		// Заполним данными для тестов
		fillWithMockData(accounts, ctrl)
	}

	router := api.NewRouter(api.Deps{
		Accounts:   accounts,
		Resources:  resources,
		Controller: ctrl,
		Observer:   observer,
		Loaders:    store,
		Gatherer:   prometheus.DefaultGatherer,
		Logger:     lg,
	})

	log.Printf("listening on http://localhost:%s/", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}

const mockPassword = "password123"

func fillWithMockData(accounts *account.Service, ctrl *controller.Controller) {
	ctx := context.Background()

	// 1. Регистрируем ученицу и гостя.
	for _, req := range []account.RegisterRequest{
		{
			Username:  "alice",
			Password:  mockPassword,
			Email:     "alice@school.uz",
			FirstName: "Alice",
			LastName:  "Karimova",
			BirthDate: time.Date(2010, 3, 14, 0, 0, 0, 0, time.UTC),
			Specs:     domain.Student(domain.Class{Num: 9, Char: "A"}),
		},
		{
			Username:  "bob",
			Password:  mockPassword,
			Email:     "bob@school.uz",
			FirstName: "Bob",
			LastName:  "Rahimov",
			BirthDate: time.Date(1990, 7, 1, 0, 0, 0, 0, time.UTC),
			Specs:     domain.Other(),
		},
	} {
		if _, err := accounts.Register(ctx, req); err != nil {
			log.Fatalf("fillWithMockData: failed to register %s: %v", req.Username, err)
		}
	}

	alice, err := ctrl.Open(ctx, "alice", mockPassword)
	if err != nil {
		log.Fatalf("fillWithMockData: failed to sign in alice: %v", err)
	}
	bob, err := ctrl.Open(ctx, "bob", mockPassword)
	if err != nil {
		log.Fatalf("fillWithMockData: failed to sign in bob: %v", err)
	}

	// 2. Пост ученицы.
	post, err := alice.Publish(ctx, "Олимпиада по математике", "Кто идет на городской тур?", []string{"math", "olympiad"})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create post: %v", err)
	}

	// 3. Гость сначала ставит лайк, затем передумывает.
	if _, err := bob.Like(ctx, post.UUID); err != nil {
		log.Fatalf("fillWithMockData: failed to like post: %v", err)
	}
	if _, err := bob.Dislike(ctx, post.UUID); err != nil {
		log.Fatalf("fillWithMockData: failed to dislike post: %v", err)
	}

	// 4. Комментарий и ответ на него.
	c1, err := bob.Comment(ctx, post.UUID, "А задания прошлого года где-нибудь есть?")
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create comment: %v", err)
	}
	if _, err := alice.Comment(ctx, c1.UUID, "Есть, выложу вечером."); err != nil {
		log.Fatalf("fillWithMockData: failed to create nested comment: %v", err)
	}

	log.Printf("Mock data filled successfully. Created post ID: %s (users alice, bob; password %q)", post.UUID, mockPassword)
}
