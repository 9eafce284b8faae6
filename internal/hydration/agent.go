package hydration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okuusi/hydromind/internal/behavior"
	"github.com/okuusi/hydromind/internal/model"
	"github.com/okuusi/hydromind/pkg/config"
	"github.com/okuusi/hydromind/pkg/mqtt"
	"github.com/okuusi/hydromind/pkg/redis"
)

// rawEventRetention bounds the raw event history kept in Redis.
const rawEventRetention = 7 * 24 * time.Hour

// Agent is the MQTT-facing surface of the hydration service. It translates
// topics into service calls and publishes suggestions, schedules, and
// insight reports back out.
type Agent struct {
	mqtt    mqtt.Client
	redis   redis.Client
	service *Service
	archive *behavior.Archive // optional, nil without Postgres
	cfg     *config.Config
	logger  *slog.Logger
}

// NewAgent creates the agent. archive may be nil.
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, service *Service, archive *behavior.Archive, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		mqtt:    mqttClient,
		redis:   redisClient,
		service: service,
		archive: archive,
		cfg:     cfg,
		logger:  logger,
	}
}

// Bind registers the training callback on the service. Must run before the
// service loop starts.
func (a *Agent) Bind(ctx context.Context) {
	a.service.SetTrainedHook(func(name string, snap model.Snapshot) {
		a.publishTrained(ctx, name, snap)
	})
}

// Start connects to MQTT, subscribes the agent topics, and blocks until the
// context is cancelled.
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting hydration agent")

	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	subscriptions := map[string]mqtt.MessageHandler{
		mqtt.TopicDrinkEvent:     func(msg mqtt.Message) { a.handleDrinkEvent(ctx, msg) },
		mqtt.TopicReminderEvent:  func(msg mqtt.Message) { a.handleReminderEvent(ctx, msg) },
		mqtt.TopicWeather:        func(msg mqtt.Message) { a.handleWeather(ctx, msg) },
		mqtt.TopicCommandSuggest: func(msg mqtt.Message) { a.handleSuggestCommand(ctx) },
		mqtt.TopicCommandReset:   func(msg mqtt.Message) { a.handleResetCommand(ctx) },
	}

	for topic, handler := range subscriptions {
		if err := a.mqtt.Subscribe(topic, 0, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	go a.publishProgress(ctx)

	if cached, err := a.redis.HGetAll(ctx, redis.InsightKey("learning")); err == nil && len(cached) > 0 {
		a.logger.Info("Cached learning insight present",
			"data_points", cached["data_points"],
			"confidence", cached["confidence"])
	}

	a.logger.Info("Hydration agent ready")

	<-ctx.Done()
	return nil
}

// Stop disconnects from the broker.
func (a *Agent) Stop() {
	a.logger.Info("Stopping hydration agent")
	a.mqtt.Disconnect()
}

func (a *Agent) handleDrinkEvent(ctx context.Context, msg mqtt.Message) {
	var payload struct {
		AmountL      float64  `json:"amount_l"`
		TemperatureC *float64 `json:"temperature_c,omitempty"`
		Timestamp    string   `json:"timestamp,omitempty"`
	}
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		a.logger.Warn("Failed to parse drink event", "error", err, "payload", string(msg.Payload()))
		return
	}
	if payload.AmountL <= 0 {
		a.logger.Warn("Ignoring drink event with non-positive amount", "amount_l", payload.AmountL)
		return
	}

	// Some loggers attach the ambient temperature to the event itself
	if payload.TemperatureC != nil {
		if err := a.service.SetTemperature(ctx, *payload.TemperatureC); err != nil {
			a.logger.Warn("Failed to update temperature from drink event", "error", err)
		}
	}

	at := time.Now()
	if payload.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
			at = t
		}
	}

	entry, err := a.service.RecordDrink(ctx, at, payload.AmountL)
	if err != nil {
		a.logger.Error("Failed to record drink", "error", err)
		return
	}

	a.storeRawEvent(ctx, "drink", at, msg.Payload())

	a.logger.Info("Drink recorded",
		"id", entry.ID,
		"amount_l", entry.AmountL,
		"hour", entry.Context.Hour)
}

func (a *Agent) handleReminderEvent(ctx context.Context, msg mqtt.Message) {
	var payload struct {
		SuggestionID string `json:"suggestion_id,omitempty"`
		Accepted     bool   `json:"accepted"`
		Hour         *int   `json:"hour,omitempty"`
	}
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		a.logger.Warn("Failed to parse reminder event", "error", err, "payload", string(msg.Payload()))
		return
	}

	at := time.Now()
	// A reminder shown earlier in the day may report its scheduled hour
	if payload.Hour != nil && *payload.Hour >= 0 && *payload.Hour <= 23 {
		at = time.Date(at.Year(), at.Month(), at.Day(), *payload.Hour, 0, 0, 0, at.Location())
	}

	if payload.SuggestionID != "" {
		id, err := uuid.Parse(payload.SuggestionID)
		if err != nil {
			a.logger.Warn("Invalid suggestion id", "id", payload.SuggestionID, "error", err)
			return
		}
		a.resolveSuggestion(ctx, id, payload.Accepted)
	} else {
		if _, err := a.service.RecordReminderOutcome(ctx, at, payload.Accepted); err != nil {
			a.logger.Error("Failed to record reminder outcome", "error", err)
			return
		}
	}

	a.storeRawEvent(ctx, "reminder", at, msg.Payload())
}

func (a *Agent) resolveSuggestion(ctx context.Context, id uuid.UUID, accepted bool) {
	if accepted {
		sg, err := a.service.AcceptSuggestion(ctx, id)
		if err != nil {
			a.logger.Warn("Failed to accept suggestion", "id", id, "error", err)
			return
		}
		// Promote into the persisted reminder list owned by the
		// notification collaborator.
		a.publish(mqtt.TopicReminderSet, map[string]interface{}{
			"hour":    sg.Hour,
			"message": sg.Message,
			"source":  "suggestion",
		})
	} else {
		if _, err := a.service.DismissSuggestion(ctx, id); err != nil {
			a.logger.Warn("Failed to dismiss suggestion", "id", id, "error", err)
		}
	}
}

func (a *Agent) handleWeather(ctx context.Context, msg mqtt.Message) {
	var payload struct {
		TemperatureC float64 `json:"temperature_c"`
	}
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		a.logger.Warn("Failed to parse weather message", "error", err, "payload", string(msg.Payload()))
		return
	}
	if err := a.service.SetTemperature(ctx, payload.TemperatureC); err != nil {
		a.logger.Error("Failed to update temperature", "error", err)
		return
	}
	a.logger.Debug("Ambient temperature updated", "temperature_c", payload.TemperatureC)
}

func (a *Agent) handleSuggestCommand(ctx context.Context) {
	suggestions, err := a.service.AnalyzeAndSuggestReminders(ctx)
	if err != nil {
		a.logger.Error("Failed to generate suggestions", "error", err)
		return
	}
	for _, sg := range suggestions {
		a.publish(mqtt.TopicSuggestionNew, sg)
	}

	a.publishSchedule(ctx)
	a.publishInsights(ctx)
}

func (a *Agent) handleResetCommand(ctx context.Context) {
	if err := a.service.ResetData(ctx); err != nil {
		a.logger.Error("Failed to reset data", "error", err)
		return
	}
	a.logger.Info("Hydration data reset via command")
}

func (a *Agent) publishSchedule(ctx context.Context) {
	schedule, err := a.service.GetPersonalizedSchedule(ctx)
	if err != nil {
		a.logger.Error("Failed to build schedule", "error", err)
		return
	}
	a.publish(mqtt.TopicScheduleCurrent, map[string]interface{}{
		"items": schedule,
	})
}

func (a *Agent) publishInsights(ctx context.Context) {
	learning, err := a.service.GetLearningInsights(ctx)
	if err != nil {
		a.logger.Error("Failed to build learning insights", "error", err)
		return
	}
	reminders, err := a.service.GetReminderInsights(ctx)
	if err != nil {
		a.logger.Error("Failed to build reminder insights", "error", err)
		return
	}

	report := map[string]interface{}{
		"learning":  learning,
		"reminders": reminders,
	}

	// With a durable archive available, attach the closest historical
	// situations to the current one.
	if a.archive != nil {
		if snapshot, err := a.service.ContextNow(ctx); err == nil {
			if similar, err := a.archive.SimilarEntries(ctx, snapshot, 5); err != nil {
				a.logger.Warn("Failed to query similar history", "error", err)
			} else if len(similar) > 0 {
				report["similar_history"] = similar
			}
		}
	}

	a.publish(mqtt.TopicInsightReport, report)

	// Cache headline figures for other consumers
	key := redis.InsightKey("learning")
	if err := a.redis.HSet(ctx, key, "data_points", strconv.Itoa(learning.DataPoints)); err != nil {
		a.logger.Warn("Failed to cache insight", "error", err)
	} else {
		_ = a.redis.HSet(ctx, key, "recent_accuracy", strconv.FormatFloat(learning.RecentAccuracy, 'f', 4, 64))
		_ = a.redis.HSet(ctx, key, "confidence", strconv.FormatFloat(learning.Confidence, 'f', 4, 64))
	}
}

func (a *Agent) publishTrained(ctx context.Context, name string, snap model.Snapshot) {
	a.publish(mqtt.TopicModelTrained, map[string]interface{}{
		"model":      name,
		"examples":   snap.Examples,
		"trained_at": snap.TrainedAt.Format(time.RFC3339),
	})

	// A fresh drink model changes the schedule; push the new one.
	if name == "drink" {
		go a.publishSchedule(ctx)
	}
}

// publishProgress forwards the trainer's simulated progress ramp.
func (a *Agent) publishProgress(ctx context.Context) {
	for {
		select {
		case p := <-a.service.TrainingProgress():
			a.publish(mqtt.TopicModelProgress, map[string]interface{}{
				"model": p.Name,
				"step":  p.Step,
				"steps": p.Steps,
			})
		case <-ctx.Done():
			return
		}
	}
}

// storeRawEvent keeps a trimmed raw event history in Redis alongside the
// structured log.
func (a *Agent) storeRawEvent(ctx context.Context, kind string, at time.Time, payload []byte) {
	key := redis.EventHistoryKey(kind)
	if err := a.redis.ZAdd(ctx, key, float64(at.UnixMilli()), string(payload)); err != nil {
		a.logger.Warn("Failed to store raw event", "kind", kind, "error", err)
		return
	}

	cutoff := at.Add(-rawEventRetention)
	if err := a.redis.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixMilli(), 10)); err != nil {
		a.logger.Warn("Failed to trim raw event history", "kind", kind, "error", err)
	}
	if err := a.redis.Expire(ctx, key, rawEventRetention); err != nil {
		a.logger.Warn("Failed to set raw event TTL", "kind", kind, "error", err)
	}

	if n, err := a.redis.ZCard(ctx, key); err == nil {
		a.logger.Debug("Raw event stored", "kind", kind, "history", n)
	}
}

func (a *Agent) publish(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("Failed to marshal payload", "topic", topic, "error", err)
		return
	}
	if err := a.mqtt.Publish(topic, 0, false, payload); err != nil {
		a.logger.Warn("Failed to publish", "topic", topic, "error", err)
	}
}
