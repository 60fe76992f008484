package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/core/internal/middleware"
	"github.com/inkpress/core/internal/modules/auth"
	"github.com/inkpress/core/internal/modules/content/article"
	"github.com/inkpress/core/internal/modules/content/category"
	"github.com/inkpress/core/internal/modules/editorial/review"
	"github.com/inkpress/core/internal/modules/editorial/roles"
	"github.com/inkpress/core/internal/modules/editorial/workflow"
	"github.com/inkpress/core/internal/modules/notify"
	"github.com/inkpress/core/internal/modules/system/health"
	"github.com/inkpress/core/internal/pkg/dispatch"
	"github.com/inkpress/core/internal/pkg/response"
	"go.uber.org/zap"
)

// queueNotifier bridges the workflow engine to the dispatch queue: events are
// persisted in Redis and delivered to the notification sink asynchronously.
type queueNotifier struct {
	queue  *dispatch.Queue
	logger *zap.Logger
}

func (n *queueNotifier) Notify(ctx context.Context, recipientID, verb, targetID, actorID string) {
	ev := notify.Event{
		RecipientID: recipientID,
		ActorID:     actorID,
		Verb:        verb,
		TargetType:  "article",
		TargetID:    targetID,
	}
	if err := n.queue.Enqueue(ctx, ev); err != nil {
		// The transition already committed; losing an event is acceptable,
		// losing the transition is not.
		n.logger.Warn("notify enqueue failed",
			zap.String("verb", verb), zap.String("target", targetID), zap.Error(err))
	}
}

func (a *App) registerRoutes(ctx context.Context) {
	a.router.NoRoute(func(c *gin.Context) {
		response.NotFoundMsg(c, "route not found")
	})
	a.router.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	oracle := roles.NewOracle(a.db)
	notifySvc := notify.NewService(a.db, notify.NewRedisDeduper(a.rc), a.logger)
	queue := dispatch.NewQueue(a.rc, notifySvc, a.logger)
	go queue.Run(ctx)

	engine := workflow.NewEngine(a.db, oracle, &queueNotifier{queue: queue, logger: a.logger}, a.logger)

	authMW := middleware.Auth(a.db)
	adminMW := middleware.AdminOnly(a.db)

	api := a.router.Group("/api/v2")
	api.Use(middleware.RateLimit(a.rc.Raw()))
	api.Use(middleware.Idempotence(a.rc.Raw()))

	health.NewHandler(a.db, a.rc).RegisterRoutes(api)
	auth.NewHandler(auth.NewService(a.db), a.logger).RegisterRoutes(api, authMW, adminMW)
	article.NewHandler(article.NewService(a.db), engine, oracle, a.logger).RegisterRoutes(api, authMW)
	review.NewHandler(review.NewService(a.db), oracle).RegisterRoutes(api, authMW)
	notify.NewHandler(a.db).RegisterRoutes(api, authMW)
	category.NewHandler(category.NewService(a.db)).RegisterRoutes(api, adminMW)

	a.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "inkpress-core", "status": "running"})
	})
}
