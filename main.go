package main

import (
	"context"
	"time"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/analysis"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/config"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/database"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/ledger"
	logger "github.com/arpit9377/ssb-insight-ai-sub001/internal/logging"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/repository"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/router"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/services"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/session"

	"go.uber.org/zap"
)

func main() {
	// Initialize Logger
	log, err := logger.Init(logger.DefaultOptions("."))
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize Configuration
	if err := config.Init(".", log); err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Database
	database.Init(log)

	// Load test content at startup
	content, err := models.LoadContent("config/content.yaml")
	if err != nil {
		log.Fatal("Failed to load test content", zap.Error(err))
	}

	limits := config.Conf.Limits
	ledgerSvc := ledger.NewService(log,
		repository.NewLedgerStore(limits.FreeAttempts, limits.PremiumAttempts),
		limits.GuestAttempts,
	)
	resolver := identity.NewResolver(log, repository.NewSightingStore(), limits.MaxAccountsPerDevice)

	policies := make(map[models.TestType]session.Policy, len(models.AllTestTypes()))
	for _, t := range models.AllTestTypes() {
		tc := config.Conf.TestPolicy(string(t))
		policies[t] = session.Policy{
			PromptCount:         tc.PromptCount,
			PromptSeconds:       tc.PromptSeconds,
			AutoAdvanceOnExpiry: tc.AutoAdvanceOnExpiry,
		}
	}
	machine := session.NewMachine(log, repository.NewSessionStore(), policies)

	// The analysis backend is optional: without an API key the app still
	// runs tests, it just never produces feedback.
	var analyzer analysis.Analyzer
	if config.Conf.Analysis.APIKey != "" {
		analyzer, err = analysis.NewGemini(context.Background(), log, config.Conf.Analysis)
		if err != nil {
			log.Fatal("Failed to initialize analysis backend", zap.Error(err))
		}
	} else {
		log.Warn("No analysis API key configured, feedback is disabled")
	}

	dispatcher := services.NewDispatcher(log, analyzer, content,
		time.Duration(config.Conf.Analysis.TimeoutSeconds)*time.Second)
	streaks := services.NewStreakService(log)

	// Completion settles everything a finished session owes: the usage
	// charge for registered owners (guests settle through their cookie on
	// the next request), the streak update, and the analysis dispatch.
	machine.OnComplete(func(s *models.TestSession) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		premium := false
		if !identity.IsGuestKey(s.OwnerKey) {
			id := identity.Identity{Kind: identity.Registered, Key: s.OwnerKey}
			if ok, err := ledgerSvc.Decrement(ctx, id, nil, s.TestType); err != nil {
				log.Error("Failed to settle usage at completion",
					zap.String("session", s.ID), zap.Error(err))
			} else if !ok {
				log.Warn("Completed session had no attempt left to charge",
					zap.String("session", s.ID), zap.String("owner", s.OwnerKey))
			}

			streaks.RecordCompletion(ctx, s.OwnerKey, time.Now().UTC())

			if userID, err := identity.UserIDFromKey(s.OwnerKey); err == nil {
				if user, err := repository.GetUserByID(ctx, userID); err == nil {
					premium = user.SubscriptionActive
				}
			}
		}

		if analyzer != nil {
			dispatcher.Dispatch(s, premium)
		}
	})

	scheduler := services.NewScheduler(log, machine.Evict)
	scheduler.Start()
	defer scheduler.Stop()

	r := router.Setup(log, router.Deps{
		Machine:    machine,
		Ledger:     ledgerSvc,
		Resolver:   resolver,
		Content:    content,
		Dispatcher: dispatcher,
	})

	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
